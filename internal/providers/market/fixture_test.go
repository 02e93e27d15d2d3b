package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureSourceUniverse(t *testing.T) {
	fs := NewFixtureSource(DefaultFixtureParams())
	ctx := context.Background()

	tokens, err := fs.Candidates(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 13)

	assert.Equal(t, "MINT_WIN_PERFECT", tokens[0].TokenMint)
	assert.Equal(t, "MINT_WIN_COMPLEX", tokens[1].TokenMint)
	assert.Equal(t, "MINT_FAKE_HEADFAKE", tokens[2].TokenMint)
	assert.Equal(t, "TOKEN00", tokens[3].TokenMint)
	assert.Equal(t, "MEME09", tokens[12].Symbol)
}

func TestFixtureSourceDeterministic(t *testing.T) {
	a := NewFixtureSource(DefaultFixtureParams())
	b := NewFixtureSource(DefaultFixtureParams())
	ctx := context.Background()

	ca, err := a.OHLCV(ctx, "TOKEN05", 0)
	require.NoError(t, err)
	cb, err := b.OHLCV(ctx, "TOKEN05", 0)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
	assert.Len(t, ca, 300)
}

func TestFixtureSourcePairStats(t *testing.T) {
	fs := NewFixtureSource(DefaultFixtureParams())

	pair, err := fs.Pair(context.Background(), "PAIR_WIN_PERFECT")
	require.NoError(t, err)
	assert.Equal(t, "MINT_WIN_PERFECT", pair.TokenMint)
	assert.Equal(t, 150000.0, pair.LiquidityUSD)
	assert.Equal(t, 1.40, pair.PriceUSD)
	// Volume over the last 5 calibration candles.
	assert.InDelta(t, 200+700+610+740+860, pair.Volume5m, 1e-9)

	_, err = fs.Pair(context.Background(), "PAIR_NOPE")
	assert.Error(t, err)
}

func TestFixtureSourceOHLCVLimit(t *testing.T) {
	fs := NewFixtureSource(DefaultFixtureParams())

	candles, err := fs.OHLCV(context.Background(), "TOKEN00", 50)
	require.NoError(t, err)
	assert.Len(t, candles, 50)

	_, err = fs.OHLCV(context.Background(), "MINT_NOPE", 10)
	assert.Error(t, err)
}

func TestGenerateCandlesShape(t *testing.T) {
	fs := NewFixtureSource(DefaultFixtureParams())
	candles, err := fs.OHLCV(context.Background(), "TOKEN00", 0)
	require.NoError(t, err)
	require.Len(t, candles, 300)

	for i, c := range candles {
		assert.GreaterOrEqual(t, c.H, c.C, "bar %d", i)
		assert.LessOrEqual(t, c.L, c.C, "bar %d", i)
		assert.Positive(t, c.V, "bar %d", i)
		if i > 0 {
			assert.Equal(t, candles[i-1].T+60, c.T, "bar %d", i)
		}
	}

	// Pump and crash bars carry the volume spikes.
	assert.GreaterOrEqual(t, candles[140].V, 8000.0)
	assert.GreaterOrEqual(t, candles[220].V, 6000.0)
	assert.Greater(t, candles[140].C, candles[139].C)
	assert.Less(t, candles[220].C, candles[219].C)
}
