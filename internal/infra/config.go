package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"maker_go/internal/analytics"
	"maker_go/internal/book"
	"maker_go/internal/iceberg"
	"maker_go/internal/maker"
	"maker_go/internal/pricing"
	"maker_go/internal/regime"
)

// Config holds the full application configuration. Component sections reuse
// the component packages' own config types so defaults and yaml tags live in
// one place.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		// Mode selects the execution sink: "paper" or "mock".
		Mode string `yaml:"mode"`
		// Model selects the pricing model: "kalman" or "ridge".
		Model string `yaml:"model"`
		// RingSize bounds the event inbox.
		RingSize int `yaml:"ring_size"`
	} `yaml:"trading"`

	Feed struct {
		WSURL      string `yaml:"ws_url"`
		Symbol     string `yaml:"symbol"`
		Aux1Symbol string `yaml:"aux1_symbol"`
		Aux2Symbol string `yaml:"aux2_symbol"`
		RiskSymbol string `yaml:"risk_symbol"`
		DomDepth   int    `yaml:"dom_depth"`
	} `yaml:"feed"`

	Kalman    pricing.KalmanConfig `yaml:"kalman"`
	Ridge     pricing.RidgeConfig  `yaml:"ridge"`
	OBI       book.OBIConfig       `yaml:"obi"`
	Iceberg   iceberg.Config       `yaml:"iceberg"`
	Regime    regime.Config        `yaml:"regime"`
	Engine    maker.Config         `yaml:"engine"`
	Analytics analytics.Config     `yaml:"analytics"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultAppConfig returns a fully populated configuration. LoadConfig layers
// the yaml file on top, so omitted sections keep these values.
func DefaultAppConfig() *Config {
	cfg := &Config{
		Kalman:    pricing.DefaultKalmanConfig(),
		Ridge:     pricing.DefaultRidgeConfig(),
		OBI:       book.DefaultOBIConfig(),
		Iceberg:   iceberg.DefaultConfig(),
		Regime:    regime.DefaultConfig(),
		Engine:    maker.DefaultConfig(),
		Analytics: analytics.DefaultConfig(),
	}
	cfg.App.Name = "maker-go"
	cfg.App.Version = "dev"
	cfg.Trading.Mode = "paper"
	cfg.Trading.Model = "kalman"
	cfg.Trading.RingSize = 4096
	cfg.Feed.DomDepth = 10
	cfg.Storage.Enabled = true
	cfg.Storage.Path = "events.db"
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads and parses the configuration file, then applies
// environment overrides and validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultAppConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// overrideWithEnv lets deployment targets redirect endpoints and paths
// without editing the config file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("MAKER_WS_URL"); v != "" {
		cfg.Feed.WSURL = v
	}
	if v := os.Getenv("MAKER_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MAKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MAKER_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate fails fast on configuration that would only blow up mid-session.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Trading.Mode) {
	case "paper", "mock":
	default:
		return fmt.Errorf("unknown trading mode: %s", c.Trading.Mode)
	}

	switch strings.ToLower(c.Trading.Model) {
	case "kalman", "ridge":
	default:
		return fmt.Errorf("unknown pricing model: %s", c.Trading.Model)
	}

	if c.Trading.RingSize <= 0 {
		return fmt.Errorf("ring size must be positive")
	}

	if c.Feed.WSURL != "" &&
		!strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}
	if c.Feed.WSURL != "" && c.Feed.Symbol == "" {
		return fmt.Errorf("feed symbol is required when a feed URL is set")
	}
	if c.Feed.DomDepth <= 0 {
		return fmt.Errorf("dom depth must be positive")
	}

	if c.Engine.TickSize <= 0 {
		return fmt.Errorf("tick size must be positive")
	}
	if c.Engine.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if c.Engine.MaxWaitSeconds <= 0 {
		return fmt.Errorf("max wait seconds must be positive")
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required when storage is enabled")
	}

	return nil
}
