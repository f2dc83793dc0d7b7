package cmd

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	valtoken "valtoken-monitor/solana"
	"valtoken-monitor/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status [program-id]",
	Short: "Show the on-chain state of a program",
	Long:  `Without a program id, the program claimed by the configured identity is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newSolanaClient(cfg, logger)
		if err != nil {
			return err
		}

		var programID solana.PublicKey
		if len(args) == 1 {
			if programID, err = solana.PublicKeyFromBase58(args[0]); err != nil {
				return fmt.Errorf("invalid program id: %w", err)
			}
		} else {
			if err := cfg.Validate(); err != nil {
				return err
			}
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			claim, err := storage.NewProgramPool(store, logger.Named("pool")).Lookup(ctx, client.Identity.PublicKey().String())
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Println(warningStyle.Render("No program is claimed by " + client.Identity.PublicKey().String()))
				return nil
			}
			if err != nil {
				return err
			}
			if programID, err = solana.PublicKeyFromBase58(claim.ProgramID); err != nil {
				return fmt.Errorf("claimed program id is invalid: %w", err)
			}
		}

		printField("Program", programID)
		balance, err := client.GetBalance(ctx, client.Payer.PublicKey())
		if err == nil {
			printField("Payer balance (SOL)", fmt.Sprintf("%.4f", float64(balance)/float64(solana.LAMPORTS_PER_SOL)))
		}

		state, err := client.FetchConfigState(ctx, programID)
		if errors.Is(err, valtoken.ErrAccountNotFound) {
			fmt.Println(warningStyle.Render("Program is not initialized."))
			return nil
		}
		if err != nil {
			return err
		}

		printField("Validator", state.Name)
		printField("Identity", state.Identity)
		printField("Vote account", state.VoteAccount)
		printField("Commission", fmt.Sprintf("%d%%", state.Commission))
		printField("Mint price (lamports)", state.MintPrice)
		for _, rarity := range valtoken.Rarities() {
			if state.Supply[rarity] == 0 {
				continue
			}
			printField(rarity.String(), fmt.Sprintf("%d minted / %d uploaded / %d supply",
				state.Minted[rarity], state.Uploaded[rarity], state.Supply[rarity]))
		}

		uris, err := client.FetchUriAccounts(ctx, programID)
		if err != nil {
			return err
		}
		for _, u := range uris {
			printField("uris "+u.Rarity.String(), fmt.Sprintf("%s (%d)", u.Address, u.Count))
		}
		return nil
	},
}
