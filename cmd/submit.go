package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mezonai/blockarchive/jsonx"
	"github.com/mezonai/blockarchive/mempool"
	"github.com/mezonai/blockarchive/types"
)

var (
	submitKey  string
	submitData string
	submitFile string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Add a JSON record to the pending pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		if submitKey == "" {
			return fmt.Errorf("--key is required")
		}
		raw, err := submitPayload()
		if err != nil {
			return err
		}

		var content types.Value
		if err := jsonx.UnmarshalCanonical(raw, &content); err != nil {
			return fmt.Errorf("record is not valid JSON: %w", err)
		}

		s, err := loadSession()
		if err != nil {
			return err
		}
		defer s.close()

		if err := mempool.NewRecordPool(s.store.PendingDir).Add(submitKey, content); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", submitKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&submitKey, "key", "", "Pending record key (file name)")
	submitCmd.Flags().StringVar(&submitData, "data", "", "Record content as a JSON literal")
	submitCmd.Flags().StringVar(&submitFile, "file", "", "Read record content from this JSON file")
}

func submitPayload() ([]byte, error) {
	switch {
	case submitData != "" && submitFile != "":
		return nil, fmt.Errorf("use either --data or --file, not both")
	case submitData != "":
		return []byte(submitData), nil
	case submitFile != "":
		return os.ReadFile(submitFile)
	default:
		return nil, fmt.Errorf("one of --data or --file is required")
	}
}
