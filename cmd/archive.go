package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	archiveKeys []string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Retry moving records left pending by a partially archived block",
	Long: `Move the given pending records into the archive directory.

Use it with the remaining keys reported by a cycle that saved its block but
could not archive every record. Records already archived are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := append(append([]string{}, archiveKeys...), args...)
		if len(keys) == 0 {
			return fmt.Errorf("no keys given; use --keys or pass them as arguments")
		}

		s, err := loadSession()
		if err != nil {
			return err
		}
		defer s.close()

		p, err := s.newProducer()
		if err != nil {
			return err
		}
		if err := p.Archive(keys); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived %d records\n", len(keys))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringSliceVar(&archiveKeys, "keys", nil, "Comma separated record keys to archive")
}
