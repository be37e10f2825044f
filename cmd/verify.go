package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/blockarchive/blockstore"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check every stored block's hashes, heights and links",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		defer s.close()

		report, err := blockstore.Verify(s.store.BlocksDir)
		if err != nil {
			return err
		}
		if report.Head.Empty() {
			fmt.Fprintln(cmd.OutOrStdout(), "chain is empty")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "verified %d blocks, head %s at height %d\n",
			report.Blocks, report.Head.ID, report.Head.Height)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
