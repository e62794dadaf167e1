package market

import "time"

// EconomicEvent is one calendar entry (NFP, CPI, rate decision, ...).
// Actual and Forecast are already parsed to plain numbers by the
// calendar provider; NaN marks a missing value.
type EconomicEvent struct {
	Date     time.Time
	Currency string
	Impact   string
	Event    string
	Actual   float64
	Forecast float64
}

// SameDay reports whether the event falls on the calendar day of t (UTC).
func (e EconomicEvent) SameDay(t time.Time) bool {
	ey, em, ed := e.Date.UTC().Date()
	ty, tm, td := t.UTC().Date()
	return ey == ty && em == tm && ed == td
}
