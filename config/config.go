package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"nftlend/crypto"
)

// Config carries the runtime settings for the lending tools.
type Config struct {
	Cluster         string `toml:"Cluster"`
	RPCEndpoint     string `toml:"RPCEndpoint"`
	ProgramID       string `toml:"ProgramID"`
	DataDir         string `toml:"DataDir"`
	KeypairPath     string `toml:"KeypairPath"`
	OracleFreshness uint64 `toml:"OracleFreshnessSeconds"`

	LogLevel string `toml:"LogLevel"`
	LogFile  string `toml:"LogFile"`
}

// Cluster presets. A config file only needs a Cluster name; endpoint and
// program id fall back to the preset unless overridden.
var clusters = map[string]Config{
	"localnet": {
		RPCEndpoint: "http://127.0.0.1:8899",
		ProgramID:   "2Kdt8uMA6m5stQqaTxVPac45j6uKbwCg5vaPtyqwLk5C",
	},
	"devnet": {
		RPCEndpoint: "https://api.devnet.solana.com",
		ProgramID:   "2Kdt8uMA6m5stQqaTxVPac45j6uKbwCg5vaPtyqwLk5C",
	},
	"mainnet-beta": {
		RPCEndpoint: "https://api.mainnet-beta.solana.com",
		ProgramID:   "BMfi6hbCSpTS962EZjwaa6bRvy2izUCmZrpBMuhJ1BUW",
	},
}

// Default returns the preset for a cluster name.
func Default(cluster string) (*Config, error) {
	preset, ok := clusters[cluster]
	if !ok {
		return nil, fmt.Errorf("config: unknown cluster %q", cluster)
	}
	cfg := preset
	cfg.Cluster = cluster
	cfg.DataDir = "./nftlend-data"
	cfg.LogLevel = "info"
	return &cfg, nil
}

// Load reads the configuration from the given path, creating a localnet
// default when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Cluster) == "" {
		cfg.Cluster = "localnet"
	}
	preset, ok := clusters[cfg.Cluster]
	if !ok {
		return nil, fmt.Errorf("config: unknown cluster %q in %s", cfg.Cluster, path)
	}
	if strings.TrimSpace(cfg.RPCEndpoint) == "" {
		cfg.RPCEndpoint = preset.RPCEndpoint
	}
	if strings.TrimSpace(cfg.ProgramID) == "" {
		cfg.ProgramID = preset.ProgramID
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./nftlend-data"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that would otherwise fail deep inside a
// command.
func (c *Config) Validate() error {
	if _, err := crypto.DecodePublicKey(c.ProgramID); err != nil {
		return fmt.Errorf("config: invalid program id %q: %w", c.ProgramID, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	return nil
}

// Program parses the configured program id.
func (c *Config) Program() (crypto.PublicKey, error) {
	return crypto.DecodePublicKey(c.ProgramID)
}

// DatabasePath is where the state store lives inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "state")
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg, err := Default("localnet")
	if err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
