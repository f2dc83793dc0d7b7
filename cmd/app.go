package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	valtoken "valtoken-monitor/solana"
	"valtoken-monitor/storage"
)

func loadKeys(cfg *Config) (payer, identity solana.PrivateKey, err error) {
	payer, err = valtoken.LoadKeypair(cfg.Keys.Payer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load payer: %w", err)
	}
	identity = payer
	if cfg.Keys.Identity != "" {
		identity, err = valtoken.LoadKeypair(cfg.Keys.Identity)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load validator identity: %w", err)
		}
	}
	return payer, identity, nil
}

func newSolanaClient(cfg *Config, logger *zap.Logger) (*valtoken.Client, error) {
	payer, identity, err := loadKeys(cfg)
	if err != nil {
		return nil, err
	}
	client, err := valtoken.NewClient(cfg.RPC.Endpoint, payer, identity, logger.Named("solana"))
	if err != nil {
		return nil, err
	}
	if d, _ := parseDuration(cfg.RPC.ConfirmTimeout); d > 0 {
		client.ConfirmTimeout = d
	}
	if d, _ := parseDuration(cfg.RPC.PollInterval); d > 0 {
		client.PollInterval = d
	}
	return client, nil
}

// openStore connects the configured program pool backend. The returned
// closer is always safe to call.
func openStore(ctx context.Context, cfg *Config, logger *zap.Logger) (storage.Store, func(), error) {
	ds := cfg.Datastore
	if ds.MongoURI != "" {
		store, err := storage.ConnectMongo(ctx, ds.MongoURI, ds.Database, ds.Collection)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Warn("failed to disconnect from mongo", zap.Error(err))
			}
		}, nil
	}

	timeout, _ := parseDuration(ds.Timeout)
	store, err := storage.NewDataAPI(storage.DataAPIConfig{
		BaseURL:    ds.APIURL,
		APIKey:     ds.APIKey,
		DataSource: ds.DataSource,
		Database:   ds.Database,
		Collection: ds.Collection,
		Timeout:    timeout,
	}, logger.Named("datastore"))
	if err != nil {
		return nil, func() {}, err
	}
	return store, func() {}, nil
}

func newRegistrar(cfg *Config, client *valtoken.Client, logger *zap.Logger) (*valtoken.Registrar, error) {
	journal, err := storage.OpenJournal(cfg.Registration.JournalPath)
	if err != nil {
		return nil, err
	}
	registrar := valtoken.NewRegistrar(client, journal, logger.Named("registrar"))
	registrar.UploadConcurrency = cfg.Registration.UploadConcurrency
	registrar.UrisPerBatch = cfg.Registration.UrisPerBatch
	registrar.BatchBytes = cfg.Registration.BatchBytes
	return registrar, nil
}

// voteKeyPath is where the vote keypair of programID is kept. The same key
// must be reused when a registration is resumed.
func voteKeyPath(dir string, programID solana.PublicKey) string {
	return filepath.Join(dir, programID.String()+".json")
}

func loadVoteKey(dir string, programID solana.PublicKey) (solana.PrivateKey, error) {
	key, created, err := valtoken.LoadOrCreateKeypair(voteKeyPath(dir, programID))
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("generated vote keypair",
			zap.Stringer("program", programID),
			zap.Stringer("voteAccount", key.PublicKey()),
		)
	}
	return key, nil
}
