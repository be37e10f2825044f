package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/blockarchive/blockstore"
	"github.com/mezonai/blockarchive/common"
)

var headCmd = &cobra.Command{
	Use:   "head",
	Short: "Print the current head of the chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		defer s.close()

		out := cmd.OutOrStdout()
		head, err := blockstore.NewIndexer(s.store.BlocksDir).GetHead()
		if err != nil {
			return err
		}
		if head.Empty() {
			fmt.Fprintln(out, "chain is empty")
		} else {
			fmt.Fprintf(out, "height:   %d\n", head.Height)
			fmt.Fprintf(out, "id:       %s (%s)\n", head.ID, common.ShortID(head.ID))
			fmt.Fprintf(out, "previous: %s\n", head.Block.Header.PreviousBlock)
			fmt.Fprintf(out, "records:  %d\n", len(head.Block.Body))
		}

		idx, err := s.openIndex()
		if err != nil || idx == nil {
			return err
		}
		height, id, ok, err := idx.Head()
		if err != nil {
			return err
		}
		switch {
		case !ok:
			fmt.Fprintln(out, "index:    empty")
		case id != head.ID:
			fmt.Fprintf(out, "index:    stale at height %d (%s), run reindex\n", height, common.ShortID(id))
		default:
			fmt.Fprintln(out, "index:    in sync")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(headCmd)
}
