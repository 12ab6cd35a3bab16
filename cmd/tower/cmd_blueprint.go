package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rainbowphysics/tower"
	"github.com/rainbowphysics/tower/internal/converter"
	"github.com/rainbowphysics/tower/internal/logging"
	"github.com/rainbowphysics/tower/tools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	bpInput  string
	bpOutput string
	bpSelect string
	bpForce  bool
)

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Save a selection as a blueprint, or build blueprints at markers",
}

var blueprintMakeCmd = &cobra.Command{
	Use:   "make [name]",
	Short: "Save the selected objects as a blueprint",
	Long: `Saves the selected objects under blueprint_dir. The blueprint's origin is
the selection's centroid at the height of its lowest object.`,
	Args: cobra.ExactArgs(1),
	RunE: runBlueprintMake,
}

var blueprintPlaceCmd = &cobra.Command{
	Use:   "place [name]",
	Short: "Build a blueprint at every object named " + tools.MarkerName,
	Long: `Builds a copy of the blueprint at every object whose custom name is
` + tools.MarkerName + `, using the marker's position, rotation and largest scale
component. The markers are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runBlueprintPlace,
}

func init() {
	blueprintCmd.PersistentFlags().StringVarP(&bpInput, "input", "i", "CondoData", "Input save")
	blueprintCmd.PersistentFlags().BoolVarP(&jsonOnly, "json", "j", false, "Read and write JSON only, without the converter")
	blueprintMakeCmd.Flags().StringVarP(&bpSelect, "select", "s", "items", "Selector expression")
	blueprintMakeCmd.Flags().BoolVarP(&bpForce, "force", "f", false, "Overwrite an existing blueprint")
	blueprintPlaceCmd.Flags().StringVarP(&bpOutput, "output", "o", "CondoData_output", "Output save")
	blueprintCmd.AddCommand(blueprintMakeCmd)
	blueprintCmd.AddCommand(blueprintPlaceCmd)
}

func runBlueprintMake(cmd *cobra.Command, args []string) error {
	path, err := tools.BlueprintPath(cfg.BlueprintDir, args[0])
	if err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil {
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s already exists and is not a file", path)
		}
		if !bpForce {
			return fmt.Errorf("blueprint %s already exists; use --force to overwrite it", args[0])
		}
	}
	selector, err := tower.ParseSelectors(bpSelect)
	if err != nil {
		return err
	}

	conv, err := newConverter(jsonOnly)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	save, err := conv.Load(ctx, strings.TrimSuffix(bpInput, ".json"))
	if err != nil {
		return err
	}
	data, err := tools.MakeBlueprint(selector.Select(save.Everything()))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create blueprint directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write blueprint: %w", err)
	}
	logging.Success(logger, "saved blueprint", zap.String("path", path))
	fmt.Fprintf(cmd.OutOrStdout(), "Saved blueprint %s to %s\n", args[0], path)
	return nil
}

func runBlueprintPlace(cmd *cobra.Command, args []string) error {
	path, err := tools.BlueprintPath(cfg.BlueprintDir, args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not find blueprint %s: %w", args[0], err)
	}

	conv, err := newConverter(jsonOnly)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	save, err := conv.Load(ctx, strings.TrimSuffix(bpInput, ".json"))
	if err != nil {
		return err
	}
	before := save.InventoryCount()
	n, err := tools.PlaceBlueprint(save, data)
	if err != nil {
		return err
	}

	output := strings.TrimSuffix(bpOutput, ".json")
	if err := conv.Save(ctx, save, output); err != nil {
		return err
	}
	written := output
	if jsonOnly {
		written = converter.JSONPath(output)
	}
	logging.Success(logger, "placed blueprint", zap.String("blueprint", args[0]), zap.Int("markers", n), zap.String("path", written))
	fmt.Fprintf(cmd.OutOrStdout(), "Placed %s at %d marker(s)\n", args[0], n)
	printInventory(cmd, before, save.InventoryCount())
	return nil
}
