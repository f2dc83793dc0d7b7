package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"valtoken-monitor/storage"
)

var claimRelease string

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim a program id for the configured validator identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		_, identity, err := loadKeys(cfg)
		if err != nil {
			return err
		}

		store, closeStore, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()
		pool := storage.NewProgramPool(store, logger.Named("pool"))

		if claimRelease != "" {
			if err := pool.Release(cmd.Context(), claimRelease, identity.PublicKey().String()); err != nil {
				return err
			}
			fmt.Println(successStyle.Render("Program " + claimRelease + " released"))
			return nil
		}

		claim, err := pool.Claim(cmd.Context(), identity.PublicKey().String())
		if errors.Is(err, storage.ErrNoProgramAvailable) {
			fmt.Println(warningStyle.Render("No program id is available. Ask an operator to deploy more."))
			return err
		}
		if err != nil {
			return err
		}

		printField("Program", claim.ProgramID)
		printField("Validator", claim.Validator)
		if claim.ClaimedAt != nil {
			printField("Claimed at", claim.ClaimedAt.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

func init() {
	claimCmd.Flags().StringVar(&claimRelease, "release", "", "return this program id to the pool instead of claiming")
}
