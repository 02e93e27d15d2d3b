// Package signals derives breakout, compression, momentum and
// support/resistance features from candle windows. All math is float64;
// callers convert to decimal only at the execution boundary.
package signals

import (
	"math"

	"github.com/memescout/memescout/internal/domain"
)

// Params controls feature extraction for one snapshot.
type Params struct {
	Lookback                 int
	CompressionLookback      int
	CompressionMaxRangeRatio float64
	ExpansionMinPct          float64
	// ExpansionReference selects the expansion baseline. Only
	// "highest_close" is defined today; unknown values fall back to it.
	ExpansionReference string
}

// Compute derives the feature set from the candle window. Windows with
// fewer than 2 candles yield the zeroed fallback set, never an error.
func Compute(candles []domain.Candle, p Params) domain.FeatureSet {
	if len(candles) < 2 {
		return domain.FeatureSet{PriceRangeRatio: 1, RangeRatio: 1}
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	ranges := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.C
		volumes[i] = c.V
		ranges[i] = c.Range()
	}

	cur := len(candles) - 1
	currentClose := closes[cur]
	currentVol := volumes[cur]
	currentRange := ranges[cur]

	window := tailWindow(closes, p.Lookback)
	volWindow := tailWindow(volumes, p.Lookback)
	rangeWindow := tailWindow(ranges, p.Lookback)

	highestClose := maxOf(window, currentClose)
	lowestClose := minOf(window, currentClose)
	avgVol := meanOf(volWindow, currentVol)
	avgRange := meanOf(rangeWindow, currentRange)

	refLookback := p.Lookback
	if p.CompressionLookback > 0 {
		refLookback = p.CompressionLookback
	}
	refWindow := tailWindow(closes, refLookback)
	refHigh := maxOf(refWindow, currentClose)
	refLow := minOf(refWindow, currentClose)

	priceRangeRatio := 1.0
	if refLow > 0 {
		priceRangeRatio = refHigh / refLow
	}
	rangeCompressed := priceRangeRatio <= p.CompressionMaxRangeRatio

	expansionPct := 0.0
	if refHigh > 0 {
		expansionPct = currentClose/refHigh - 1
	}
	priceExpanded := expansionPct >= p.ExpansionMinPct

	returnPct := 0.0
	if len(closes) > p.Lookback {
		prior := closes[len(closes)-(p.Lookback+1)]
		if prior > 0 {
			returnPct = currentClose/prior - 1
		}
	}

	volumeAccel := 0.0
	if avgVol > 0 {
		volumeAccel = currentVol/avgVol - 1
	}
	rangeRatio := 1.0
	if avgRange > 0 {
		rangeRatio = currentRange / avgRange
	}

	return domain.FeatureSet{
		HighestClose:    highestClose,
		LowestClose:     lowestClose,
		AvgVolume:       avgVol,
		BreakoutStrict:  rangeCompressed && priceExpanded,
		PriceRangeRatio: priceRangeRatio,
		RangeCompressed: rangeCompressed,
		ExpansionPct:    expansionPct,
		PriceExpanded:   priceExpanded,
		ReturnPct:       returnPct,
		VolumeAccel:     volumeAccel,
		RangeRatio:      rangeRatio,
		RegimeScore:     RegimeScore(returnPct, volumeAccel, rangeRatio),
	}
}

// tailWindow returns the lookback values preceding the last element,
// shrinking to all-but-last when the series is shorter.
func tailWindow(values []float64, lookback int) []float64 {
	if len(values) < 2 {
		return values
	}
	start := len(values) - (lookback + 1)
	if start < 0 {
		start = 0
	}
	return values[start : len(values)-1]
}

func maxOf(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func meanOf(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// MomentumComponent is one additive contribution to a momentum score.
type MomentumComponent struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
	Value        float64 `json:"value"`
}

// MomentumDetail is a momentum score with its per-feature breakdown,
// used for decision-record diagnostics.
type MomentumDetail struct {
	Total       float64             `json:"total"`
	Components  []MomentumComponent `json:"components"`
	TopFeatures []string            `json:"top_features"`
}

// MomentumScore ranks entry candidates by recent return, volume surge
// and range expansion. The multiples compare recent bars against the
// median of the preceding window, which keeps a single outlier bar from
// dominating the ranking. Returns 0 when the window is too short or the
// reference close is not positive.
func MomentumScore(candles []domain.Candle, lookback int) float64 {
	if lookback <= 0 || len(candles) < lookback+1 {
		return 0
	}
	return Momentum(candles, lookback).Total
}

// Momentum computes the momentum score together with its component
// breakdown. When the window is shorter than lookback+1 bars the
// lookback shrinks to the available data; below 2 bars the score is 0.
func Momentum(candles []domain.Candle, lookback int) MomentumDetail {
	if lookback <= 0 {
		return MomentumDetail{}
	}
	if len(candles) < lookback+1 {
		lookback = len(candles) - 1
		if lookback < 1 {
			return MomentumDetail{}
		}
	}

	window := candles[len(candles)-(lookback+1):]
	closeNow := window[len(window)-1].C
	closeThen := window[0].C
	if closeThen <= 0 {
		return MomentumDetail{}
	}
	ret := closeNow/closeThen - 1

	vols := make([]float64, 0, len(window)-1)
	relRanges := make([]float64, 0, len(window)-1)
	for _, c := range window[:len(window)-1] {
		vols = append(vols, c.V)
		if c.C > 0 {
			relRanges = append(relRanges, c.Range()/c.C)
		}
	}

	medianVol := median(vols)
	volMult := 1.0
	if medianVol > 0 {
		volMult = vols[len(vols)-1] / medianVol
	}

	medianRange := median(relRanges)
	rangeNow := window[len(window)-1].Range() / math.Max(closeNow, 1e-9)
	rangeMult := 1.0
	if medianRange > 0 {
		rangeMult = rangeNow / medianRange
	}

	returnContrib := 100 * ret
	volumeContrib := 0.0
	if medianVol > 0 {
		volumeContrib = 10 * math.Log1p(math.Max(0, volMult-1))
	}
	rangeContrib := 0.0
	if medianRange > 0 {
		rangeContrib = 5 * math.Log1p(math.Max(0, rangeMult-1))
	}

	components := []MomentumComponent{
		{Feature: "return_pct", Contribution: returnContrib, Value: ret},
		{Feature: "volume_mult", Contribution: volumeContrib, Value: volMult},
		{Feature: "range_mult", Contribution: rangeContrib, Value: rangeMult},
	}
	SortComponentsByImpact(components)

	top := make([]string, 0, 2)
	for _, comp := range components[:2] {
		top = append(top, comp.Feature)
	}

	return MomentumDetail{
		Total:       returnContrib + volumeContrib + rangeContrib,
		Components:  components,
		TopFeatures: top,
	}
}

// SortComponentsByImpact orders components by absolute contribution,
// largest first.
func SortComponentsByImpact(components []MomentumComponent) {
	for i := 1; i < len(components); i++ {
		for j := i; j > 0 && math.Abs(components[j].Contribution) > math.Abs(components[j-1].Contribution); j-- {
			components[j], components[j-1] = components[j-1], components[j]
		}
	}
}
