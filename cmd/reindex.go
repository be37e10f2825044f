package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the height index from the block directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		defer s.close()

		idx, err := s.openIndex()
		if err != nil {
			return err
		}
		if idx == nil {
			return fmt.Errorf("no height index configured (set index.dir)")
		}

		n, err := idx.Rebuild(s.store.BlocksDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d blocks\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
