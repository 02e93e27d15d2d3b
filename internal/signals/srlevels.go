package signals

import (
	"sort"

	"github.com/memescout/memescout/internal/domain"
)

// zoneWidthPct is the provisional band width around a swing point,
// as a fraction of its price.
const zoneWidthPct = 0.01

// SRZones locates swing highs/lows over the window and clusters them
// into resistance and support bands. Windows shorter than 5 candles
// yield empty results. Both lists are sorted ascending by Low.
func SRZones(candles []domain.Candle) (support, resistance []domain.Zone) {
	if len(candles) < 5 {
		return nil, nil
	}

	var swingHighs, swingLows []float64
	for i := 2; i < len(candles)-2; i++ {
		high := candles[i].H
		low := candles[i].L
		neighborHigh := maxOf([]float64{
			candles[i-2].H, candles[i-1].H, candles[i+1].H, candles[i+2].H,
		}, high)
		neighborLow := minOf([]float64{
			candles[i-2].L, candles[i-1].L, candles[i+1].L, candles[i+2].L,
		}, low)
		if high > neighborHigh {
			swingHighs = append(swingHighs, high)
		}
		if low < neighborLow {
			swingLows = append(swingLows, low)
		}
	}

	return clusterLevels(swingLows), clusterLevels(swingHighs)
}

// clusterLevels merges swing prices into zones: a price falling inside
// an existing band widens it and bumps its strength; anything else
// starts a fresh band.
func clusterLevels(levels []float64) []domain.Zone {
	var zones []domain.Zone
	for _, price := range levels {
		width := price * zoneWidthPct
		low := price - width/2
		high := price + width/2

		merged := false
		for i := range zones {
			if zones[i].Contains(price) {
				zones[i].Strength++
				if low < zones[i].Low {
					zones[i].Low = low
				}
				if high > zones[i].High {
					zones[i].High = high
				}
				merged = true
				break
			}
		}
		if !merged {
			zones = append(zones, domain.Zone{Low: low, High: high, Strength: 1})
		}
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].Low < zones[j].Low })
	return zones
}
