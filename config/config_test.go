package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.0003, cfg.Sweep.Spread)
	assert.Equal(t, 10_000.0, cfg.Sweep.InitialCapital)
	assert.Len(t, cfg.Timeframes(), 3)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Sweep.Timeframes = []string{"2h"}
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Sweep.InitialCapital = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Catalog.DBPath = ""
	assert.Error(t, cfg.Validate())
}

func TestSaveLoadRoundTripYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantlab.yaml")

	cfg := Default()
	cfg.Data.Dir = "/srv/bars"
	cfg.Sweep.Symbols = []string{"GLD"}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/bars", loaded.Data.Dir)
	assert.Equal(t, []string{"GLD"}, loaded.Sweep.Symbols)
	assert.Equal(t, cfg.Sweep.Spread, loaded.Sweep.Spread)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantlab.json")

	cfg := Default()
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Catalog.DBPath, loaded.Catalog.DBPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sweep:\n  initial_capital: -5\n"), 0644))
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}
