// Package config holds the research platform configuration: where
// bar data lives, where the experiment catalogue goes and the
// standing sweep assumptions.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/quantlab/market"
)

// Config represents the complete platform configuration.
type Config struct {
	Data    DataConfig    `json:"data" yaml:"data"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Sweep   SweepConfig   `json:"sweep" yaml:"sweep"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// DataConfig locates historical bars and the economic calendar.
type DataConfig struct {
	Dir          string   `json:"dir" yaml:"dir"`
	CalendarFile string   `json:"calendar_file,omitempty" yaml:"calendar_file,omitempty"`
	Currencies   []string `json:"currencies,omitempty" yaml:"currencies,omitempty"`
}

// CatalogConfig locates the experiment database.
type CatalogConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// SweepConfig carries the execution assumptions and default targets.
type SweepConfig struct {
	Spread         float64  `json:"spread" yaml:"spread"`
	InitialCapital float64  `json:"initial_capital" yaml:"initial_capital"`
	Start          string   `json:"start" yaml:"start"`
	End            string   `json:"end" yaml:"end"`
	Symbols        []string `json:"symbols" yaml:"symbols"`
	Timeframes     []string `json:"timeframes" yaml:"timeframes"`
}

// LoggingConfig selects the logger profile.
type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based
// on content; YAML is tried first).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml,
// JSON otherwise).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if c.Catalog.DBPath == "" {
		return fmt.Errorf("catalog.db_path is required")
	}
	if c.Sweep.Spread < 0 {
		return fmt.Errorf("sweep.spread must not be negative")
	}
	if c.Sweep.InitialCapital <= 0 {
		return fmt.Errorf("sweep.initial_capital must be positive")
	}
	for _, tf := range c.Sweep.Timeframes {
		if _, err := market.ParseTimeframe(tf); err != nil {
			return err
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	return nil
}

// Timeframes returns the configured sweep timeframes as typed
// values.
func (c *Config) Timeframes() []market.Timeframe {
	out := make([]market.Timeframe, 0, len(c.Sweep.Timeframes))
	for _, tf := range c.Sweep.Timeframes {
		out = append(out, market.Timeframe(tf))
	}
	return out
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:        "./data",
			Currencies: []string{"USD"},
		},
		Catalog: CatalogConfig{
			DBPath: "./experiments.db",
		},
		Sweep: SweepConfig{
			Spread:         0.0003,
			InitialCapital: 10_000,
			Start:          "2020-01-01",
			End:            "2025-12-31",
			Symbols:        []string{"SPY", "QQQ", "IWM", "XLE", "XBI", "EEM", "GLD", "TLT"},
			Timeframes:     []string{"5m", "15m", "1h"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
