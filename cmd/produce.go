package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Produce a single block from the pending records and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		defer s.close()

		p, err := s.newProducer()
		if err != nil {
			return err
		}

		res := p.RunCycle(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), res.String())
		if res.Err != nil && !res.Empty() {
			return res.Err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(produceCmd)
}
