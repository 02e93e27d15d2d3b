package domain

// FeatureSet is the typed breakout/compression/momentum view derived
// from a candle window. Known fields are fixed and statically checked;
// provider-specific overlays (trend indicators, anything a chain
// provider wants to attach) go into Extra.
type FeatureSet struct {
	HighestClose    float64 `json:"highest_close"`
	LowestClose     float64 `json:"lowest_close"`
	AvgVolume       float64 `json:"avg_volume"`
	BreakoutStrict  bool    `json:"breakout_strict"`
	PriceRangeRatio float64 `json:"price_range_ratio"`
	RangeCompressed bool    `json:"range_compressed"`
	ExpansionPct    float64 `json:"expansion_pct"`
	PriceExpanded   bool    `json:"price_expanded"`
	ReturnPct       float64 `json:"return_pct"`
	VolumeAccel     float64 `json:"volume_accel"`
	RangeRatio      float64 `json:"range_ratio"`
	RegimeScore     int     `json:"regime_score"`

	// Chain-overlay flags, set by the engine before the policy runs.
	ChainConfirmed       bool `json:"chain_confirmed"`
	ChainOverride        bool `json:"chain_override"`
	ProvisionalCandidate bool `json:"provisional_candidate"`

	Extra map[string]float64 `json:"extra,omitempty"`
}

// ChainFeatures aggregates on-chain activity for a token over the
// provider's transaction window. A nil value means the chain overlay is
// absent and every chain-dependent flag defaults to false.
type ChainFeatures struct {
	TxCount               float64  `json:"chain_tx_count"`
	SwapCount             float64  `json:"chain_swap_count"`
	LiquidityEvents       float64  `json:"chain_liquidity_events"`
	LiquidityRemoveEvents float64  `json:"chain_liquidity_remove_events"`
	NetNative             float64  `json:"chain_net_native"`
	NetToken              float64  `json:"chain_net_token"`
	VelocityPerMin        float64  `json:"chain_tx_velocity_per_min"`
	Sources               []string `json:"chain_sources,omitempty"`
}

// Snapshot is the immutable per-instrument view computed once per tick
// and consumed read-only by policy, ranker and validator.
type Snapshot struct {
	Pair            PairStats
	Candles         []Candle
	SupportZones    []Zone
	ResistanceZones []Zone
	Features        FeatureSet
	Chain           *ChainFeatures
	RegimeScore     int
	NowTS           int64
	// CandleIndex is the position of the last candle within the full
	// series, or -1 when the caller has no stable index (live polling).
	CandleIndex int
	LastClose   float64
	LastLow     float64
	LastHigh    float64
	// ResistanceLevels holds up to 3 zones above LastClose, ascending.
	ResistanceLevels []Zone
	// SupportLevel is the nearest zone below LastClose, nil when none.
	SupportLevel *Zone
}
