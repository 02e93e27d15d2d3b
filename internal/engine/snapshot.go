package engine

import (
	"sort"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
	"github.com/memescout/memescout/internal/signals"
)

// BuildSnapshot assembles the per-instrument market view for one tick:
// support/resistance zones, the feature set, nearby resistance targets
// and the nearest support below price. candleIndex is the absolute
// position of the window's last candle within the full series, or -1
// when unknown (live mode). extra entries are merged into the feature
// extension map.
func BuildSnapshot(
	pair domain.PairStats,
	candles []domain.Candle,
	cfg *config.Config,
	candleIndex int,
	extra map[string]float64,
) *domain.Snapshot {
	support, resistance := signals.SRZones(candles)

	features := signals.Compute(candles, signals.Params{
		Lookback:                 cfg.Rules.BreakoutLookback,
		CompressionLookback:      cfg.CompressionLookback(),
		CompressionMaxRangeRatio: cfg.Breakout.CompressionMaxRangeRatio,
		ExpansionMinPct:          cfg.Breakout.ExpansionMinPct,
		ExpansionReference:       cfg.Breakout.ExpansionReference,
	})
	if len(extra) > 0 {
		if features.Extra == nil {
			features.Extra = make(map[string]float64, len(extra))
		}
		for k, v := range extra {
			features.Extra[k] = v
		}
	}

	last := candles[len(candles)-1]

	var resistanceAbove []domain.Zone
	for _, z := range resistance {
		if z.Low >= last.C {
			resistanceAbove = append(resistanceAbove, z)
		}
	}
	sort.Slice(resistanceAbove, func(i, j int) bool { return resistanceAbove[i].Low < resistanceAbove[j].Low })
	if len(resistanceAbove) > 3 {
		resistanceAbove = resistanceAbove[:3]
	}

	var supportLevel *domain.Zone
	for i := range support {
		z := support[i]
		if z.High <= last.C && (supportLevel == nil || z.Low > supportLevel.Low) {
			zone := z
			supportLevel = &zone
		}
	}

	return &domain.Snapshot{
		Pair:             pair,
		Candles:          candles,
		SupportZones:     support,
		ResistanceZones:  resistance,
		Features:         features,
		RegimeScore:      features.RegimeScore,
		NowTS:            last.T,
		CandleIndex:      candleIndex,
		LastClose:        last.C,
		LastLow:          last.L,
		LastHigh:         last.H,
		ResistanceLevels: resistanceAbove,
		SupportLevel:     supportLevel,
	}
}
