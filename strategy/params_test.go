package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsGetters(t *testing.T) {
	p := Params{
		"overbought": 80,
		"sl_atr":     2.5,
		"period":     "14",
		"symbol":     "GLD",
		"skip":       true,
	}

	assert.Equal(t, 80.0, p.Float("overbought", 0))
	assert.Equal(t, 2.5, p.Float("sl_atr", 0))
	assert.Equal(t, 14, p.Int("period", 0))
	assert.Equal(t, 80, p.Int("overbought", 0))
	assert.Equal(t, "GLD", p.Str("symbol", ""))
	assert.True(t, p.Bool("skip", false))

	// Missing keys fall back.
	assert.Equal(t, 20.0, p.Float("oversold", 20))
	assert.Equal(t, 3, p.Int("missing", 3))
	assert.Equal(t, "1h", p.Str("timeframe", "1h"))
	assert.False(t, p.Bool("missing", false))
}

func TestParamsCloneIsIndependent(t *testing.T) {
	p := Params{"a": 1}
	c := p.Clone()
	c["a"] = 2
	c["b"] = 3

	assert.Equal(t, 1, p["a"])
	_, ok := p["b"]
	assert.False(t, ok)
}

func TestParamsKeysSorted(t *testing.T) {
	p := Params{"z": 1, "a": 2, "m": 3}
	assert.Equal(t, []string{"a", "m", "z"}, p.Keys())
}

func TestRegistry(t *testing.T) {
	assert.True(t, Exists("StochRSIMeanReversion"))
	assert.True(t, Exists("DonchianBreakout"))
	assert.True(t, Exists("MACDBollinger"))
	assert.True(t, Exists("HybridRegime"))
	assert.False(t, Exists("nope"))

	_, err := New("nope", &Context{})
	assert.Error(t, err)
}
