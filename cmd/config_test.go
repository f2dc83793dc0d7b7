package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	valtoken "valtoken-monitor/solana"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCEndpoint, cfg.RPC.Endpoint)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 4, cfg.Registration.UploadConcurrency)
	assert.Equal(t, 10, cfg.Registration.UrisPerBatch)

	// Defaults alone have no datastore.
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeFile(t, "valtoken.yaml", `
rpc:
  endpoint: https://rpc.example.com
keys:
  payer: /keys/payer.json
datastore:
  api_url: https://data.example.com/app/x/endpoint/data/v1
  api_key: from-file
registration:
  upload_concurrency: 2
`)
	t.Setenv("DATA_API_KEY", "from-env")
	t.Setenv("URIS_PER_BATCH", "6")
	t.Setenv("LISTEN_ADDR", ":9999")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.RPC.Endpoint)
	assert.Equal(t, "/keys/payer.json", cfg.Keys.Payer)
	assert.Equal(t, "from-env", cfg.Datastore.APIKey)
	assert.Equal(t, "programs", cfg.Datastore.Collection, "unset keys keep their defaults")
	assert.Equal(t, 2, cfg.Registration.UploadConcurrency)
	assert.Equal(t, 6, cfg.Registration.UrisPerBatch)
	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Helius(t *testing.T) {
	t.Setenv("HELIUS_API_KEY", "abc")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://devnet.helius-rpc.com/?api-key=abc", cfg.RPC.Endpoint)

	t.Setenv("RPC_ENDPOINT", "http://localhost:8899")
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", cfg.RPC.Endpoint, "an explicit endpoint wins over helius")
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "bad.yaml", "rpc: [unterminated"))
	assert.Error(t, err)

	t.Setenv("UPLOAD_CONCURRENCY", "many")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "UPLOAD_CONCURRENCY")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Datastore.MongoURI = "mongodb://localhost:27017"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no payer", func(c *Config) { c.Keys.Payer = "" }},
		{"no datastore", func(c *Config) { c.Datastore.MongoURI = "" }},
		{"no collection", func(c *Config) { c.Datastore.Collection = "" }},
		{"zero concurrency", func(c *Config) { c.Registration.UploadConcurrency = 0 }},
		{"zero batch bytes", func(c *Config) { c.Registration.BatchBytes = 0 }},
		{"bad duration", func(c *Config) { c.RPC.ConfirmTimeout = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := writeFile(t, "manifest.yaml", `
name: Validator One
commission: 8
mint_price: 500000000
supply:
  common: 3
  legendary: 1
collection:
  name: Validator One Club
  symbol: V1C
  uri: https://arweave.net/collection.json
uris:
  common:
    - https://arweave.net/c0.json
    - https://arweave.net/c1.json
  legendary:
    - https://arweave.net/l0.json
`)
	params, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), params.Commission)
	assert.Equal(t, uint32(1), params.Supply[valtoken.RarityLegendary])
	assert.Len(t, params.Uris[valtoken.RarityCommon], 2)

	_, err = loadManifest(writeFile(t, "over.yaml", `
name: X
collection: {name: C, uri: u}
supply: {rare: 1}
uris: {rare: [a, b]}
`))
	assert.ErrorIs(t, err, valtoken.ErrInvalidParams)
}
