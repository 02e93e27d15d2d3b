package market

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/memescout/memescout/internal/domain"
)

// FixtureSource is the deterministic offline universe: three
// hand-crafted calibration tokens plus seeded synthetic pairs whose
// price paths cycle through chop, grind, pump and dump phases. The
// same construction parameters always produce the same candles.
type FixtureSource struct {
	tokens  []domain.TokenRef
	pairs   map[string]domain.PairStats
	candles map[string][]domain.Candle
}

var _ Source = (*FixtureSource)(nil)

// FixtureParams controls synthetic universe generation.
type FixtureParams struct {
	NumTokens   int
	CandleCount int
	StartTS     int64
	IntervalSec int64
}

// DefaultFixtureParams mirrors the calibration universe: 10 tokens,
// 300 one-minute candles.
func DefaultFixtureParams() FixtureParams {
	return FixtureParams{NumTokens: 10, CandleCount: 300, StartTS: 1700000000, IntervalSec: 60}
}

// NewFixtureSource builds the fixture universe.
func NewFixtureSource(p FixtureParams) *FixtureSource {
	fs := &FixtureSource{
		pairs:   make(map[string]domain.PairStats),
		candles: make(map[string][]domain.Candle),
	}

	for _, cal := range calibrationTokens() {
		fs.addToken(cal.ref, cal.candles, 150000)
	}

	remaining := p.NumTokens - len(fs.tokens)
	for idx := 0; idx < remaining; idx++ {
		ref := domain.TokenRef{
			PairID:    syntheticID("PAIR", idx),
			TokenMint: syntheticID("TOKEN", idx),
			Symbol:    syntheticID("MEME", idx),
		}
		rng := rand.New(rand.NewSource(int64(1000 + idx)))
		basePrice := 0.5 + float64(idx)*0.12
		candles := generateCandles(rng, basePrice, p.StartTS, p.IntervalSec, p.CandleCount)
		fs.addToken(ref, candles, 50000+float64(idx)*5000)
	}

	return fs
}

func syntheticID(prefix string, idx int) string {
	return fmt.Sprintf("%s%02d", prefix, idx)
}

func (fs *FixtureSource) addToken(ref domain.TokenRef, candles []domain.Candle, liquidityUSD float64) {
	fs.tokens = append(fs.tokens, ref)
	fs.candles[ref.TokenMint] = candles

	volume5m := 0.0
	start := len(candles) - 5
	if start < 0 {
		start = 0
	}
	for _, c := range candles[start:] {
		volume5m += c.V
	}
	fs.pairs[ref.PairID] = domain.PairStats{
		PairID:       ref.PairID,
		TokenMint:    ref.TokenMint,
		PriceUSD:     candles[len(candles)-1].C,
		LiquidityUSD: liquidityUSD,
		Volume5m:     volume5m,
		Txns5m:       int(volume5m / 100),
	}
}

func (fs *FixtureSource) Candidates(_ context.Context) ([]domain.TokenRef, error) {
	out := make([]domain.TokenRef, len(fs.tokens))
	copy(out, fs.tokens)
	return out, nil
}

func (fs *FixtureSource) Pair(_ context.Context, pairID string) (domain.PairStats, error) {
	pair, ok := fs.pairs[pairID]
	if !ok {
		return domain.PairStats{}, errors.Errorf("unknown pair %s", pairID)
	}
	return pair, nil
}

func (fs *FixtureSource) OHLCV(_ context.Context, tokenMint string, limit int) ([]domain.Candle, error) {
	candles, ok := fs.candles[tokenMint]
	if !ok {
		return nil, errors.Errorf("unknown token %s", tokenMint)
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	out := make([]domain.Candle, len(candles))
	copy(out, candles)
	return out, nil
}

// generateCandles walks a price through five phases: sideways chop,
// slow grind up, accelerating grind with a pump bar at 140, a dump
// leg with a crash bar at 220, then stabilization. Volume spikes pair
// with the pump and crash bars.
func generateCandles(rng *rand.Rand, basePrice float64, startTS, intervalSec int64, count int) []domain.Candle {
	candles := make([]domain.Candle, 0, count)
	price := basePrice

	for i := 0; i < count; i++ {
		var drift float64
		switch {
		case i < 60:
			drift = uniform(rng, -0.002, 0.002)
		case i < 120:
			drift = 0.002 + uniform(rng, -0.001, 0.001)
		case i < 180:
			drift = 0.003 + uniform(rng, -0.001, 0.001)
			if i == 140 {
				drift = 0.08
			}
		case i < 240:
			drift = -0.005 + uniform(rng, -0.002, 0)
			if i == 220 {
				drift = -0.15
			}
		default:
			drift = 0.001 + uniform(rng, -0.001, 0.001)
		}

		price *= 1 + drift
		if price < 0.01 {
			price = 0.01
		}
		open := price
		if len(candles) > 0 {
			open = candles[len(candles)-1].C
		}
		high := max(open, price) * (1 + uniform(rng, 0.001, 0.01))
		low := min(open, price) * (1 - uniform(rng, 0.001, 0.01))

		volume := 1000 + uniform(rng, 0, 500)
		if i == 140 || i == 141 {
			volume = 8000 + uniform(rng, 0, 2000)
		}
		if i == 220 || i == 221 {
			volume = 6000 + uniform(rng, 0, 1500)
		}

		candles = append(candles, domain.Candle{
			T: startTS + int64(i)*intervalSec,
			O: open,
			H: high,
			L: low,
			C: price,
			V: volume,
		})
	}

	return candles
}

func uniform(rng *rand.Rand, low, high float64) float64 {
	return low + rng.Float64()*(high-low)
}
