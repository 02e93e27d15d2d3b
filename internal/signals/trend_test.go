package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memescout/memescout/internal/domain"
)

func TestTrendOverlayShortWindow(t *testing.T) {
	candles := make([]domain.Candle, 20)
	for i := range candles {
		candles[i] = flatCandle(1.0, 100)
	}
	assert.Nil(t, TrendOverlay(candles))
}

func TestTrendOverlayKeys(t *testing.T) {
	candles := make([]domain.Candle, 40)
	for i := range candles {
		candles[i] = flatCandle(1.0+float64(i)*0.01, 100)
	}

	overlay := TrendOverlay(candles)
	require.NotNil(t, overlay)
	assert.Contains(t, overlay, "trend_ema20")
	assert.Contains(t, overlay, "trend_rsi14")

	// Rising closes keep the EMA below the last close and the RSI pinned high.
	assert.Less(t, overlay["trend_ema20"], candles[len(candles)-1].C)
	assert.Greater(t, overlay["trend_rsi14"], 50.0)
}
