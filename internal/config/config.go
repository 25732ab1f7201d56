package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type NetworkConfig struct {
	RPC_URL          string `yaml:"RPC_URL"`
	CHAIN_ID         int64  `yaml:"CHAIN_ID"`
	REGISTRY_ADDRESS string `yaml:"REGISTRY_ADDRESS"`
	WRAPPER_ADDRESS  string `yaml:"WRAPPER_ADDRESS"`
	ROUNDUP_RECEIVER string `yaml:"ROUNDUP_RECEIVER"`
	AUTO_TOKEN       string `yaml:"AUTO_TOKEN"`
}

type Config struct {
	// secrets kept in YAML, overridable via env
	PRIVATE_KEY string `yaml:"PRIVATE_KEY"`

	TELEGRAM_TOKEN   string `yaml:"TELEGRAM_TOKEN"`
	TELEGRAM_CHAT_ID int64  `yaml:"TELEGRAM_CHAT_ID"`

	DEFAULT_NETWORK string                   `yaml:"DEFAULT_NETWORK"`
	NETWORKS        map[string]NetworkConfig `yaml:"NETWORKS"`

	// local state
	EVENT_DB_PATH    string `yaml:"EVENT_DB_PATH"`
	ORDER_CACHE_PATH string `yaml:"ORDER_CACHE_PATH"`

	DEBUG bool `yaml:"DEBUG"`
}

const DefaultPath = "config.yml"

func Default() *Config {
	return &Config{
		PRIVATE_KEY: "",

		TELEGRAM_TOKEN:   "",
		TELEGRAM_CHAT_ID: 0,

		DEFAULT_NETWORK: "ropsten",
		NETWORKS: map[string]NetworkConfig{
			"ropsten": {
				RPC_URL:          "wss://ropsten.infura.io/ws/v3/<KEY>",
				CHAIN_ID:         3,
				REGISTRY_ADDRESS: "0xB82Ae7779aB1742734fCE32A4b7fDBCf020F2667",
				WRAPPER_ADDRESS:  "0x5afc709047E113267f46e47f6cdeA6466614D99C",
				ROUNDUP_RECEIVER: "0x5afc709047E113267f46e47f6cdeA6466614D99C",
				AUTO_TOKEN:       "0x7E9c7a4a4a48bBccBf97a30f8dDA3B4cc597Cdd0",
			},
			"avalanche": {
				RPC_URL:          "wss://api.avax.network/ext/bc/C/ws",
				CHAIN_ID:         43114,
				REGISTRY_ADDRESS: "0x68FCbECa74A7E5D386f74E14682c94DE0e1bC56b",
				WRAPPER_ADDRESS:  "0x94486317E9708Ef0Bb99bB0E915A94D83e9D2B23",
				ROUNDUP_RECEIVER: "0x802290173908ed30A9642D6872e252Ef4f6e59A2",
				AUTO_TOKEN:       "0x68FCbECa74A7E5D386f74E14682c94DE0e1bC56c",
			},
		},

		EVENT_DB_PATH:    "autoreq.db",
		ORDER_CACHE_PATH: "orders.json",

		DEBUG: false,
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		c.PRIVATE_KEY = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.TELEGRAM_TOKEN = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.TELEGRAM_CHAT_ID = id
		}
	}
	if v := os.Getenv("AUTOREQ_NETWORK"); v != "" {
		c.DEFAULT_NETWORK = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.DEBUG = v == "true" || v == "1"
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	// create if missing
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PRIVATE_KEY == "" {
		return fmt.Errorf("PRIVATE_KEY is required (set in config.yml or PRIVATE_KEY env)")
	}
	if _, ok := c.NETWORKS[c.DEFAULT_NETWORK]; !ok {
		return fmt.Errorf("DEFAULT_NETWORK %q has no NETWORKS entry", c.DEFAULT_NETWORK)
	}
	return nil
}

// Network resolves a named network, falling back to the default.
func (c *Config) Network(name string) (NetworkConfig, error) {
	if name == "" {
		name = c.DEFAULT_NETWORK
	}
	net, ok := c.NETWORKS[name]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("unknown network %q", name)
	}
	return net, nil
}

func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
