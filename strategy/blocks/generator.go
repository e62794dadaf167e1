package blocks

import "fmt"

// Combo is one runnable pairing of blocks plus its display label.
// The label doubles as the experiment dedup key.
type Combo struct {
	Entry  Entry
	Exit   Exit
	Filter Filter
	Sizer  Sizer
	Label  string
}

// filterCompat lists the filter base names that make sense for each
// entry kind: mean reversion wants ranging regimes, trend wants
// trending ones.
var filterCompat = map[Kind][]string{
	MeanReversion: {"no_filter", "adx_ranging", "chop_ranging", "sma_uptrend"},
	Trend:         {"no_filter", "adx_trending", "chop_trending", "sma_uptrend"},
}

// Compatible reports whether the pairing makes sense: the exit must
// match the entry's kind or be generic, and the filter must suit the
// entry's regime preference.
func Compatible(entry Entry, exit Exit, filter Filter) bool {
	if exit.Kind != entry.Kind && exit.Kind != Generic {
		return false
	}
	allowed, ok := filterCompat[entry.Kind]
	if !ok {
		allowed = []string{"no_filter"}
	}
	fb := baseName(filter.Name)
	for _, a := range allowed {
		if fb == a {
			return true
		}
	}
	return false
}

// Generate returns every compatible pairing of the given block sets.
// Nil slices fall back to the default catalogues; checkCompat=false
// yields the full cartesian product.
func Generate(entries []Entry, exits []Exit, filters []Filter, sizers []Sizer, checkCompat bool) []Combo {
	if entries == nil {
		entries = Entries()
	}
	if exits == nil {
		exits = Exits()
	}
	if filters == nil {
		filters = Filters()
	}
	if sizers == nil {
		sizers = Sizers()
	}

	var combos []Combo
	for _, en := range entries {
		for _, ex := range exits {
			for _, fl := range filters {
				if checkCompat && !Compatible(en, ex, fl) {
					continue
				}
				for _, sz := range sizers {
					combos = append(combos, Combo{
						Entry:  en,
						Exit:   ex,
						Filter: fl,
						Sizer:  sz,
						Label:  fmt.Sprintf("%s | %s | %s | %s", en.Name, ex.Name, fl.Name, sz.Name),
					})
				}
			}
		}
	}
	return combos
}

// Count returns the number of combinations Generate would yield from
// the default catalogues.
func Count(checkCompat bool) int {
	return len(Generate(nil, nil, nil, nil, checkCompat))
}
