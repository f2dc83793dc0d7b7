package cmd

import (
	"fmt"
	"os"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    *Config
)

var rootCmd = &cobra.Command{
	Use:   "valtoken",
	Short: "valtoken registers validators with their tokenization program.",
	Long: `valtoken claims a validator program id, initializes its on-chain config,
uploads the NFT metadata URIs for each rarity and creates the validator's vote account.

Run "valtoken serve" to expose registration over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := godotenv.Load(); err != nil {
			logger.Info(".env file not found, using environment and config file")
		}

		cfg, err = LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger.Debug("config loaded", zap.String("path", configPath), zap.String("rpc", cfg.RPC.Endpoint))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		banner := figure.NewFigure("VALTOKEN", "larry3d", true)
		fmt.Println(titleStyle.Render(banner.String()))
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "valtoken.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, registerCmd, claimCmd, deriveCmd, statusCmd)
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render(err.Error()))
		os.Exit(1)
	}
}
