package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultRPCEndpoint = "https://api.devnet.solana.com"

// Config holds all monitor configuration.
type Config struct {
	RPC          RPCConfig          `yaml:"rpc"`
	Keys         KeysConfig         `yaml:"keys"`
	Datastore    DatastoreConfig    `yaml:"datastore"`
	Server       ServerConfig       `yaml:"server"`
	Registration RegistrationConfig `yaml:"registration"`
}

type RPCConfig struct {
	Endpoint       string `yaml:"endpoint"`
	ConfirmTimeout string `yaml:"confirm_timeout"`
	PollInterval   string `yaml:"poll_interval"`
}

// KeysConfig points at solana-keygen JSON files.
type KeysConfig struct {
	Payer string `yaml:"payer"`
	// Identity is the validator node key. Empty means the payer.
	Identity   string `yaml:"identity"`
	VoteKeyDir string `yaml:"vote_key_dir"`
}

// DatastoreConfig selects the program pool backend. MongoURI wins over the
// Data API when both are set.
type DatastoreConfig struct {
	APIURL     string `yaml:"api_url"`
	APIKey     string `yaml:"api_key"`
	DataSource string `yaml:"data_source"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	MongoURI   string `yaml:"mongo_uri"`
	Timeout    string `yaml:"timeout"`
}

type ServerConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RequestTimeout string   `yaml:"request_timeout"`
}

type RegistrationConfig struct {
	UploadConcurrency int    `yaml:"upload_concurrency"`
	UrisPerBatch      int    `yaml:"uris_per_batch"`
	BatchBytes        int    `yaml:"batch_bytes"`
	JournalPath       string `yaml:"journal_path"`
}

func DefaultConfig() *Config {
	return &Config{
		RPC: RPCConfig{
			Endpoint:       DefaultRPCEndpoint,
			ConfirmTimeout: "90s",
			PollInterval:   "2s",
		},
		Keys: KeysConfig{
			Payer:      "config/payer.json",
			VoteKeyDir: "data/votes",
		},
		Datastore: DatastoreConfig{
			DataSource: "Cluster0",
			Database:   "valtoken",
			Collection: "programs",
			Timeout:    "15s",
		},
		Server: ServerConfig{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"*"},
			RequestTimeout: "10m",
		},
		Registration: RegistrationConfig{
			UploadConcurrency: 4,
			UrisPerBatch:      10,
			BatchBytes:        700,
			JournalPath:       "data/journal.json",
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults and applies
// environment overrides. An empty or missing path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if endpoint := os.Getenv("RPC_ENDPOINT"); endpoint != "" {
		c.RPC.Endpoint = endpoint
	} else if heliusApiKey := os.Getenv("HELIUS_API_KEY"); heliusApiKey != "" && c.RPC.Endpoint == DefaultRPCEndpoint {
		c.RPC.Endpoint = fmt.Sprintf("https://devnet.helius-rpc.com/?api-key=%s", heliusApiKey)
	}

	stringVars := map[string]*string{
		"KEYPAIR_PATH":          &c.Keys.Payer,
		"IDENTITY_KEYPAIR_PATH": &c.Keys.Identity,
		"VOTE_KEY_DIR":          &c.Keys.VoteKeyDir,
		"DATA_API_URL":          &c.Datastore.APIURL,
		"DATA_API_KEY":          &c.Datastore.APIKey,
		"DATA_SOURCE":           &c.Datastore.DataSource,
		"DATA_DATABASE":         &c.Datastore.Database,
		"DATA_COLLECTION":       &c.Datastore.Collection,
		"MONGO_URI":             &c.Datastore.MongoURI,
		"LISTEN_ADDR":           &c.Server.ListenAddr,
		"JOURNAL_PATH":          &c.Registration.JournalPath,
	}
	for name, field := range stringVars {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	intVars := map[string]*int{
		"UPLOAD_CONCURRENCY": &c.Registration.UploadConcurrency,
		"URIS_PER_BATCH":     &c.Registration.UrisPerBatch,
	}
	for name, field := range intVars {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*field = n
	}
	return nil
}

// Validate reports the first setting that would stop the monitor from
// registering validators.
func (c *Config) Validate() error {
	if c.RPC.Endpoint == "" {
		return fmt.Errorf("rpc endpoint is required")
	}
	if c.Keys.Payer == "" {
		return fmt.Errorf("payer keypair path is required")
	}
	if c.Datastore.MongoURI == "" && c.Datastore.APIURL == "" {
		return fmt.Errorf("either datastore mongo_uri or api_url is required")
	}
	if c.Datastore.Database == "" || c.Datastore.Collection == "" {
		return fmt.Errorf("datastore database and collection are required")
	}
	if c.Registration.UploadConcurrency <= 0 {
		return fmt.Errorf("upload_concurrency must be positive")
	}
	if c.Registration.UrisPerBatch <= 0 {
		return fmt.Errorf("uris_per_batch must be positive")
	}
	if c.Registration.BatchBytes <= 0 {
		return fmt.Errorf("batch_bytes must be positive")
	}
	for name, value := range map[string]string{
		"rpc.confirm_timeout":    c.RPC.ConfirmTimeout,
		"rpc.poll_interval":      c.RPC.PollInterval,
		"datastore.timeout":      c.Datastore.Timeout,
		"server.request_timeout": c.Server.RequestTimeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// parseDuration treats an empty value as zero.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
