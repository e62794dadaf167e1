package strategy

import (
	"fmt"
	"sort"
	"strconv"
)

// Params carries the tunable knobs of one strategy run. Values arrive
// from YAML config, sweep grids or the experiment catalogue, so the
// getters normalise across float64, int and string representations.
type Params map[string]any

// Float returns the value at key as a float64, or def when the key is
// missing or not numeric.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the value at key as an int, or def when the key is
// missing or not numeric. Float values are truncated.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// Str returns the value at key as a string, or def when missing.
func (p Params) Str(key, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

// Bool returns the value at key as a bool, or def when missing.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Clone returns a shallow copy, so a caller can inject run-scoped
// keys (symbol, timeframe) without mutating a shared grid entry.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
