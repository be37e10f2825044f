package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mezonai/blockarchive/logx"
)

var (
	// Global flags
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "blockarchive",
	Short: "Hash-linked block archive for pending records",
	Long: `Command line interface for packing pending records into hash-linked blocks
stored on disk and archiving the consumed records.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a .yml or .ini config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".", "Directory relative store locations are resolved against")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed: ", err)
		_ = logx.Close()
		os.Exit(1)
	}
	_ = logx.Close()
}
