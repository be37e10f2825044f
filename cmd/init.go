package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mezonai/blockarchive/config"
	"github.com/mezonai/blockarchive/logx"
)

var (
	// Init command specific variables
	initConfigOut string
	initIndexDir  string
	initForce     bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and create the store directories",
	Long: `Initialize an archive under --data-dir by:
- Writing a config file (.yml or .ini, by extension)
- Creating the pending, processed and blocks directories

Running it again keeps an existing config unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initializeArchive(cmd)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initConfigOut, "out", "config/archive.yml", "Where to write the config, relative to --data-dir")
	initCmd.Flags().StringVar(&initIndexDir, "index-dir", "", "Enable the height index at this location")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func initializeArchive(cmd *cobra.Command) error {
	cfg := config.Default()
	cfg.Index.Dir = initIndexDir
	initializeFileLogger(cfg.Log)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	out := initConfigOut
	if !filepath.IsAbs(out) {
		out = filepath.Join(dataDir, out)
	}
	if _, err := os.Stat(out); err == nil && !initForce {
		logx.Warn("INIT", "Config already exists, keeping it: ", out)
	} else {
		if err := config.WriteConfig(out, cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		logx.Info("INIT", "Wrote config to ", out)
	}

	store := cfg.Store.Resolve(dataDir)
	for _, dir := range []string{store.PendingDir, store.ProcessedDir, store.BlocksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "initialized archive in %s (config %s)\n", dataDir, out)
	return nil
}
