package cmd

import (
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"valtoken-monitor/monitor"
	"valtoken-monitor/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the registration API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := newSolanaClient(cfg, logger)
		if err != nil {
			return err
		}
		registrar, err := newRegistrar(cfg, client, logger)
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		requestTimeout, _ := parseDuration(cfg.Server.RequestTimeout)
		server, err := monitor.NewServer(monitor.Options{
			Registrar: registrar,
			Pool:      storage.NewProgramPool(store, logger.Named("pool")),
			Chain:     client,
			VoteKeys: func(programID solana.PublicKey) (solana.PrivateKey, error) {
				return loadVoteKey(cfg.Keys.VoteKeyDir, programID)
			},
			Identity:       client.Identity.PublicKey(),
			Logger:         logger.Named("monitor"),
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestTimeout: requestTimeout,
		})
		if err != nil {
			return err
		}

		logger.Info("monitor ready",
			zap.Stringer("identity", client.Identity.PublicKey()),
			zap.Stringer("payer", client.Payer.PublicKey()),
		)
		return server.ListenAndServe(ctx, cfg.Server.ListenAddr)
	},
}
