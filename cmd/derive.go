package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	valtoken "valtoken-monitor/solana"
)

var deriveJSON bool

var deriveCmd = &cobra.Command{
	Use:   "derive <program-id>",
	Short: "Print every account derived for a program id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		programID, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
		accs, err := valtoken.NewDeriver(programID).DeriveAll()
		if err != nil {
			return err
		}

		if deriveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(accs.List())
		}

		for _, acc := range accs.List() {
			printField(acc.Name, acc.Address)
		}
		return nil
	},
}

func init() {
	deriveCmd.Flags().BoolVar(&deriveJSON, "json", false, "print as JSON")
}
