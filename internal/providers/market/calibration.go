package market

import "github.com/memescout/memescout/internal/domain"

type calibrationToken struct {
	ref     domain.TokenRef
	candles []domain.Candle
}

// calibrationTokens returns the three hand-crafted scenarios the
// pipeline is sanity-checked against: a clean runner, a compressed
// base that resolves upward, and a headfake pump that collapses.
func calibrationTokens() []calibrationToken {
	return []calibrationToken{
		{
			ref: domain.TokenRef{PairID: "PAIR_WIN_PERFECT", TokenMint: "MINT_WIN_PERFECT", Symbol: "WIN_PERFECT"},
			candles: []domain.Candle{
				{T: 1700000000, O: 1.00, H: 1.02, L: 0.99, C: 1.01, V: 120},
				{T: 1700000060, O: 1.01, H: 1.03, L: 1.00, C: 1.02, V: 130},
				{T: 1700000120, O: 1.02, H: 1.05, L: 1.01, C: 1.04, V: 160},
				{T: 1700000180, O: 1.04, H: 1.12, L: 1.03, C: 1.10, V: 200},
				{T: 1700000240, O: 1.10, H: 1.20, L: 1.09, C: 1.18, V: 700},
				{T: 1700000300, O: 1.18, H: 1.28, L: 1.16, C: 1.25, V: 610},
				{T: 1700000360, O: 1.25, H: 1.35, L: 1.24, C: 1.33, V: 740},
				{T: 1700000420, O: 1.33, H: 1.45, L: 1.31, C: 1.40, V: 860},
			},
		},
		{
			ref: domain.TokenRef{PairID: "PAIR_WIN_COMPLEX", TokenMint: "MINT_WIN_COMPLEX", Symbol: "WIN_COMPLEX"},
			candles: []domain.Candle{
				{T: 1700000000, O: 1.00, H: 1.01, L: 0.97, C: 0.98, V: 140},
				{T: 1700000060, O: 0.98, H: 1.00, L: 0.96, C: 0.99, V: 150},
				{T: 1700000120, O: 0.99, H: 1.00, L: 0.98, C: 0.995, V: 110},
				{T: 1700000180, O: 0.995, H: 1.005, L: 0.99, C: 1.000, V: 105},
				{T: 1700000240, O: 1.000, H: 1.015, L: 0.995, C: 1.010, V: 180},
				{T: 1700000300, O: 1.010, H: 1.030, L: 1.005, C: 1.020, V: 240},
				{T: 1700000360, O: 1.020, H: 1.025, L: 1.000, C: 1.005, V: 210},
				{T: 1700000420, O: 1.005, H: 1.050, L: 1.002, C: 1.045, V: 420},
			},
		},
		{
			ref: domain.TokenRef{PairID: "PAIR_FAKE_HEADFAKE", TokenMint: "MINT_FAKE_HEADFAKE", Symbol: "FAKE_HEADFAKE"},
			candles: []domain.Candle{
				{T: 1700000000, O: 1.00, H: 1.02, L: 0.99, C: 1.01, V: 120},
				{T: 1700000060, O: 1.01, H: 1.08, L: 1.00, C: 1.07, V: 900},
				{T: 1700000120, O: 1.07, H: 1.10, L: 0.92, C: 0.95, V: 1100},
				{T: 1700000180, O: 0.95, H: 0.98, L: 0.80, C: 0.82, V: 800},
				{T: 1700000240, O: 0.82, H: 0.85, L: 0.78, C: 0.80, V: 300},
			},
		},
	}
}
