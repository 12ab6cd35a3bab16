package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rainbowphysics/tower/internal/backup"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up a save and its canvas resources, or restore a backup",
}

var backupSaveCmd = &cobra.Command{
	Use:   "save [file]",
	Short: "Back up a save with every resource it references",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupSave,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [backup]",
	Short: "Write a backed-up save back to where it came from",
	Long: `Restores a backup by name (under backup_dir) or by path, and reports
which of its resources are no longer online.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupRestore,
}

func init() {
	backupCmd.PersistentFlags().BoolVarP(&jsonOnly, "json", "j", false, "Read and write JSON only, without the converter")
	backupCmd.AddCommand(backupSaveCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}

func newBacker() *backup.Backer {
	return &backup.Backer{
		Client:      &http.Client{Timeout: 30 * time.Second},
		InstallPath: cfg.InstallPath,
		Version:     version,
		Logger:      logger.Named("backup"),
	}
}

func runBackupSave(cmd *cobra.Command, args []string) error {
	conv, err := newConverter(jsonOnly)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	save, err := conv.Load(ctx, strings.TrimSuffix(args[0], ".json"))
	if err != nil {
		return err
	}
	dir, err := newBacker().Make(ctx, save, conv, cfg.BackupDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created backup at %s\nTo restore it, run: tower backup restore %s\n",
		dir, filepath.Base(dir))
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if _, err := os.Stat(dir); err != nil {
		dir = filepath.Join(cfg.BackupDir, args[0])
	}
	conv, err := newConverter(jsonOnly)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	report, err := newBacker().Restore(ctx, dir, conv)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Restored save to %s\n", report.Path)
	if len(report.Dead) > 0 {
		fmt.Fprintf(out, "%d/%d resources are offline:\n", len(report.Dead), report.Total)
		for _, u := range report.Dead {
			fmt.Fprintf(out, "  %s\n", u)
		}
	}
	return nil
}
