// Command tower edits Tower Unite condo saves: it converts saves to and from
// JSON, runs edit tools over selections of objects, and backs up the canvas
// resources a save references.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rainbowphysics/tower"
	"github.com/rainbowphysics/tower/internal/config"
	"github.com/rainbowphysics/tower/internal/converter"
	"github.com/rainbowphysics/tower/internal/logging"
	"github.com/rainbowphysics/tower/tools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is overridden at link time with -X main.version=...
var version = "0.4.0"

var (
	configPath string
	rootDir    string
	verbose    bool
	jsonOnly   bool

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	registry *tools.Registry
)

var rootCmd = &cobra.Command{
	Use:   "tower",
	Short: "Tower Unite save editing toolkit",
	Long: `tower edits Tower Unite condo saves (CondoData files and .map files).

Saves are converted to JSON with the tower-unite-suitebro converter, edited
by tools that operate on a selection of objects, and converted back.

Examples:
  tower run translate -i CondoData -s "group:3" offset=0,0,100
  tower run duplicate -s "name:CanvasCube" -@ offset=50,0,0
  tower backup save CondoData`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the toolkit version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tower %s\n", version)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert a save to JSON, or a .json file back to a save",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available tools",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var infoCmd = &cobra.Command{
	Use:   "info [tool]",
	Short: "Show a tool's description and parameters",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Config file (created with defaults if missing)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Toolkit directory holding lib/ (default: executable directory)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(blueprintCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads the config, builds the logger and the tool registry.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, closeLog, err = logging.New(logging.Options{Level: level, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	tower.SetLogger(logger.Named("tower"))
	tools.SetLogger(logger.Named("tools"))
	logger.Debug("ran command", zap.Strings("args", os.Args))

	registry = tools.DefaultRegistry()
	if cfg.ToolsIndex != "" {
		if err := registry.WriteIndex(cfg.ToolsIndex); err != nil {
			logger.Warn("could not write tools index", zap.Error(err))
		}
	}
	return nil
}

func toolkitRoot() string {
	if rootDir != "" {
		return rootDir
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func newConverter(only bool) (*converter.Converter, error) {
	return converter.New(cfg, toolkitRoot(), only, logger.Named("converter"))
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	err := rootCmd.Execute()
	if closeLog != nil {
		_ = closeLog()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
