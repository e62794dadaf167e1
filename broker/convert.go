package broker

// Converter translates PnL amounts from the quote currency of a
// traded symbol into the account currency. It is pluggable so the
// hard-coded cross rates of early prototypes can be replaced without
// touching the fill engine.
type Converter interface {
	// Convert takes an amount in the quote currency of symbol and the
	// current price of symbol, and returns the amount in the account
	// currency.
	Convert(amount float64, symbol string, price float64) float64
}

// StaticConverter handles the documented cases:
//   - quote currency equals the account currency: identity
//   - base currency equals the account currency: divide by price
//   - JPY quote into a USD account: divide by a conservative constant
//   - anything else (including equity tickers, which carry no
//     currency suffix): returned as-is
type StaticConverter struct {
	Account string
	// JPYPerUSD is the conservative rate applied to JPY crosses.
	JPYPerUSD float64
}

// NewStaticConverter returns a converter for the given account
// currency with the default 150 JPY/USD cross rate.
func NewStaticConverter(account string) StaticConverter {
	return StaticConverter{Account: account, JPYPerUSD: 150}
}

func (c StaticConverter) Convert(amount float64, symbol string, price float64) float64 {
	if len(symbol) < 6 {
		// Equity-style ticker: quoted in the account currency.
		return amount
	}

	base := symbol[:3]
	quote := symbol[3:6]

	if quote == c.Account {
		return amount
	}
	if base == c.Account && price > 0 {
		return amount / price
	}
	if quote == "JPY" && c.Account == "USD" && c.JPYPerUSD > 0 {
		return amount / c.JPYPerUSD
	}
	return amount
}
