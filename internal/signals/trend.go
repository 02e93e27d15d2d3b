package signals

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"

	"github.com/memescout/memescout/internal/domain"
)

const (
	trendEmaPeriod = 20
	trendRsiPeriod = 14
)

// TrendOverlay computes auxiliary trend context (EMA, RSI of closes)
// for decision-record diagnostics. The overlay never gates policy
// decisions; it rides along in the snapshot's feature extension map.
// Returns nil when the window is too short for the indicators.
func TrendOverlay(candles []domain.Candle) map[string]float64 {
	if len(candles) < trendEmaPeriod+1 {
		return nil
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.C
	}

	ema := trend.NewEmaWithPeriod[float64](trendEmaPeriod)
	emaValues := helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes)))

	rsi := momentum.NewRsiWithPeriod[float64](trendRsiPeriod)
	rsiValues := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes)))

	overlay := make(map[string]float64, 2)
	if len(emaValues) > 0 {
		overlay["trend_ema20"] = emaValues[len(emaValues)-1]
	}
	if len(rsiValues) > 0 {
		overlay["trend_rsi14"] = rsiValues[len(rsiValues)-1]
	}
	if len(overlay) == 0 {
		return nil
	}
	return overlay
}
