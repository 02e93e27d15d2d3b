package domain

// Candle is a single OHLCV bar. Sequences are ordered by non-decreasing
// timestamp and treated as immutable once produced.
type Candle struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// Range returns the high-low spread of the bar.
func (c Candle) Range() float64 {
	return c.H - c.L
}

// PairStats is the per-tick market view of a trading pair, refreshed
// from the market provider on every tick.
type PairStats struct {
	PairID       string  `json:"pair_id"`
	TokenMint    string  `json:"token_mint"`
	PriceUSD     float64 `json:"price_usd"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Volume5m     float64 `json:"volume_5m"`
	Txns5m       int     `json:"txns_5m"`
}

// TokenRef identifies one instrument of the scan universe.
type TokenRef struct {
	PairID    string `json:"pair_id"`
	TokenMint string `json:"token_mint"`
	Symbol    string `json:"symbol"`
}

// Zone is a clustered support/resistance band. Strength counts the
// swing points merged into the band.
type Zone struct {
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Strength int     `json:"strength"`
}

// Contains reports whether price falls inside the band.
func (z Zone) Contains(price float64) bool {
	return price >= z.Low && price <= z.High
}
