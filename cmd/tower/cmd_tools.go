package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rainbowphysics/tower"
	"github.com/rainbowphysics/tower/internal/converter"
	"github.com/rainbowphysics/tower/internal/logging"
	"github.com/rainbowphysics/tower/tools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runInput      string
	runOutput     string
	runSelect     string
	runInvert     bool
	runInvertFull bool
	runPerGroup   bool
	runNumRuns    int
	runParams     []string
)

var runCmd = &cobra.Command{
	Use:   "run [tool] [name=value...]",
	Short: "Run a tool on a save",
	Long: `Runs a tool on the objects picked by the selector.

Tool names match case-insensitively, and any unique prefix works.
Parameters are name=value pairs, given after the tool name or with -@.

Selectors (chain with ';', each narrows the previous):
  items | all | none | group:<id> | name:<n> | customname:<n> | objname:<n>
  regex:<re> | glob:<pattern> | jq:<expr> | random:<p> | take:<n> | <n>
  <p>% | box:x,y,z/x,y,z | sphere:x,y,z/r`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTool,
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "CondoData", "Input save")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "CondoData_output", "Output save")
	runCmd.Flags().StringVarP(&runSelect, "select", "s", "items", "Selector expression")
	runCmd.Flags().BoolVarP(&runInvert, "invert", "v", false, "Invert the selection among items")
	runCmd.Flags().BoolVar(&runInvertFull, "invert-full", false, "Invert the selection among all objects")
	runCmd.Flags().BoolVarP(&jsonOnly, "json", "j", false, "Read and write JSON only, without the converter")
	runCmd.Flags().BoolVarP(&runPerGroup, "per-group", "g", false, "Run once per group, and once per ungrouped object")
	runCmd.Flags().IntVarP(&runNumRuns, "num-runs", "r", 1, "Number of times to run the tool")
	runCmd.Flags().StringArrayVarP(&runParams, "params", "@", nil, "Tool parameter name=value (repeatable)")
}

func findTool(name string) (*tools.Tool, error) {
	t, err := registry.Find(name)
	if err != nil {
		return nil, fmt.Errorf("%w\n\nAvailable tools: %s", err, registry.Names())
	}
	return t, nil
}

func runTool(cmd *cobra.Command, args []string) error {
	if runInvert && runInvertFull {
		return errors.New("--invert and --invert-full cannot be used at the same time")
	}
	tool, err := findTool(args[0])
	if err != nil {
		return err
	}
	params, err := tools.ParseParams(append(append([]string{}, args[1:]...), runParams...), tool)
	if err != nil {
		return err
	}
	selector, err := tower.ParseSelectors(runSelect)
	if err != nil {
		return err
	}

	input := runInput
	if jsonOnly {
		input = strings.TrimSuffix(input, ".json")
	}
	conv, err := newConverter(jsonOnly)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	save, err := conv.Load(ctx, input)
	if err != nil {
		return err
	}
	before := save.InventoryCount()

	sel := selector.Select(save.Everything())
	if runInvert || runInvertFull {
		sel = tools.Invert(save, sel, runInvertFull)
	}
	logger.Debug("selected objects", zap.Stringer("selector", selector), zap.Int("count", sel.Len()))

	if err := tools.Run(tool, save, sel, params, tools.RunOptions{NumRuns: runNumRuns, PerGroup: runPerGroup}); err != nil {
		return err
	}
	if tool.NoWrite {
		return nil
	}

	output := runOutput
	if jsonOnly {
		output = strings.TrimSuffix(output, ".json")
	}
	if err := conv.Save(ctx, save, output); err != nil {
		return err
	}
	written := output
	if jsonOnly {
		written = converter.JSONPath(output)
	}
	logging.Success(logger, "exported", zap.String("path", written))

	printInventory(cmd, before, save.InventoryCount())
	return nil
}

// printInventory lists required inventory items when the tool added any.
func printInventory(cmd *cobra.Command, before, after map[string]int) {
	grew := false
	for name, n := range after {
		if n > before[name] {
			grew = true
			break
		}
	}
	if !grew {
		return
	}
	names := make([]string, 0, len(after))
	for name := range after {
		names = append(names, name)
	}
	sort.Strings(names)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Make sure you have the following items in your inventory before loading the map:")
	for _, name := range names {
		fmt.Fprintf(out, "%9dx %s\n", after[name], name)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available tools:")
	for _, t := range registry.Tools() {
		line := "  " + t.Name
		if t.Version != "" {
			line += " (v" + t.Version + ")"
		}
		if t.Author != "" {
			line += " by " + t.Author
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	t, err := findTool(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Describe())
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	conv, err := newConverter(false)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	in, err := filepath.Abs(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	if strings.HasSuffix(in, ".json") {
		return conv.Run(ctx, in, strings.TrimSuffix(in, ".json"), true)
	}
	return conv.Run(ctx, in, converter.JSONPath(in), false)
}
