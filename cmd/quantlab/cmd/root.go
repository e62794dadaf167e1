package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rustyeddy/quantlab/catalog"
	"github.com/rustyeddy/quantlab/config"
	"github.com/rustyeddy/quantlab/marketdata"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "quantlab",
	Short: "A quantitative strategy research and discovery platform",
	Long: `Quantlab is a systematic strategy research platform written in Go.

It provides tools for:
  - Backtesting strategies over historical bar data
  - Parameter grid sweeps across symbols and timeframes
  - Composable strategy generation from building blocks
  - Overfitting validation (holdout, walk-forward, multi-asset)
  - Unattended overnight discovery runs
  - An SQLite experiment catalogue with reporting`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logging level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}

// setup opens everything a research command needs.
func setup() (*config.Config, *zap.Logger, *catalog.Catalog, *marketdata.DirLoader, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cat, err := catalog.Open(cfg.Catalog.DBPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	loader := marketdata.NewDirLoader(cfg.Data.Dir)
	loader.SetLogger(log)
	return cfg, log, cat, loader, nil
}
