package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	valtoken "valtoken-monitor/solana"
	"valtoken-monitor/storage"
)

var (
	registerProgram string
	registerYes     bool
)

var registerCmd = &cobra.Command{
	Use:   "register <manifest.yaml>",
	Short: "Register the configured validator from a YAML manifest",
	Long: `Claims a program id (unless --program is given), then sends Init, the URI
uploads and the vote account creation. Completed steps are journaled, so an
interrupted registration can be re-run with the same manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerProgram, "program", "", "program id to register against instead of claiming one")
	registerCmd.Flags().BoolVarP(&registerYes, "yes", "y", false, "skip the confirmation prompt")
}

// loadManifest reads registration params from a YAML file.
func loadManifest(path string) (*valtoken.RegistrationParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var params valtoken.RegistrationParams
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	params, err := loadManifest(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := newSolanaClient(cfg, logger)
	if err != nil {
		return err
	}

	programID, err := resolveProgram(cmd, client.Identity.PublicKey())
	if err != nil {
		return err
	}

	voteKey, err := loadVoteKey(cfg.Keys.VoteKeyDir, programID)
	if err != nil {
		return err
	}

	plan, err := valtoken.PlanUploads(params.Uris, cfg.Registration.UrisPerBatch, cfg.Registration.BatchBytes)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Validator Registration"))
	printField("Program", programID)
	printField("Validator", params.Name)
	printField("Identity", client.Identity.PublicKey())
	printField("Vote account", voteKey.PublicKey())
	printField("Commission", fmt.Sprintf("%d%%", params.Commission))
	printField("Mint price (lamports)", params.MintPrice)
	for _, rarity := range valtoken.Rarities() {
		if supply, ok := params.Supply[rarity]; ok {
			printField("Supply "+rarity.String(), fmt.Sprintf("%d (%d uris)", supply, len(params.Uris[rarity])))
		}
	}
	printField("Upload transactions", len(plan))

	if !registerYes {
		confirm := false
		prompt := &survey.Confirm{Message: "Send the registration transactions?", Default: false}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			return err
		}
		if !confirm {
			fmt.Println("Registration cancelled.")
			return nil
		}
	}

	registrar, err := newRegistrar(cfg, client, logger)
	if err != nil {
		return err
	}

	sigs, err := registrar.Register(ctx, programID, params, voteKey)
	if err != nil {
		var regErr *valtoken.RegistrationError
		if errors.As(err, &regErr) {
			fmt.Println(warningStyle.Render(fmt.Sprintf("Registration stopped at the %s stage.", regErr.Stage)))
			printSignatures(regErr.Completed)
		}
		return err
	}

	fmt.Println(successStyle.Render("✅ Validator registered"))
	printSignatures(sigs)
	return nil
}

// resolveProgram returns --program when set, otherwise claims a program id
// from the pool for identity.
func resolveProgram(cmd *cobra.Command, identity solana.PublicKey) (solana.PublicKey, error) {
	if registerProgram != "" {
		programID, err := solana.PublicKeyFromBase58(registerProgram)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid program id: %w", err)
		}
		return programID, nil
	}

	if err := cfg.Validate(); err != nil {
		return solana.PublicKey{}, err
	}
	store, closeStore, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return solana.PublicKey{}, err
	}
	defer closeStore()

	claim, err := storage.NewProgramPool(store, logger.Named("pool")).Claim(cmd.Context(), identity.String())
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBase58(claim.ProgramID)
}

func printSignatures(sigs []solana.Signature) {
	for i, sig := range sigs {
		printField(fmt.Sprintf("  #%d", i+1), sig)
	}
}
