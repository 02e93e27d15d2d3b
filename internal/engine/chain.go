package engine

import (
	"math"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
)

// ApplyChainOverrideFlags folds on-chain activity into the snapshot's
// candidacy flags. chain_confirmed means the token clears every
// configured activity threshold; chain_override allows an entry without
// a strict candle breakout when confirmation is on and the candles
// alone did not qualify. provisional_candidate marks any token worth
// ranking this tick.
func ApplyChainOverrideFlags(snap *domain.Snapshot, chain *domain.ChainFeatures, cfg *config.Config) {
	b := cfg.Breakout

	chainConfirmed := false
	if chain != nil {
		chainConfirmed = chain.VelocityPerMin >= b.ChainOverrideMinTxVelocity &&
			chain.SwapCount >= b.ChainOverrideMinSwapCount &&
			chain.NetNative >= b.ChainOverrideMinNetNative &&
			chain.LiquidityEvents >= b.ChainOverrideMinLiquidityEvts
	}

	breakoutStrict := snap.Features.BreakoutStrict
	chainOverride := !breakoutStrict && b.ChainOverrideEnabled && chainConfirmed

	snap.Features.ChainConfirmed = chainConfirmed
	snap.Features.ChainOverride = chainOverride
	snap.Features.ProvisionalCandidate = breakoutStrict || chainOverride
	snap.Chain = chain
}

// ApplyChainRisk vetoes entries whose on-chain flow looks toxic:
// capital leaving the pool, liquidity being pulled, or a transaction
// spike with no sustained activity behind it. Exits and scale-outs
// always pass; a vetoed entry is demoted to HOLD with the risk codes
// appended, and a HOLD just collects the codes.
func ApplyChainRisk(p domain.Proposal, chain *domain.ChainFeatures) domain.Proposal {
	if chain == nil {
		return p
	}
	if p.Action.IsExit() {
		return p
	}

	var reasons []string
	if chain.NetNative < 0 || chain.NetToken < 0 {
		reasons = append(reasons, domain.ReasonNetOutflow)
	}
	if chain.LiquidityRemoveEvents > 0 || chain.LiquidityEvents < 0 {
		reasons = append(reasons, domain.ReasonLiquidityRisk)
	}
	if chain.VelocityPerMin >= 8 && chain.TxCount < 40 {
		reasons = append(reasons, domain.ReasonDeadAfterSpike)
	}
	if len(reasons) == 0 {
		return p
	}

	merged := append([]string(nil), p.ReasonCodes...)
	for _, r := range reasons {
		if !containsReason(merged, r) {
			merged = append(merged, r)
		}
	}

	if p.Action.IsEntry() {
		return p.Demote(merged)
	}
	return p.WithReasons(merged)
}

// VelocityBaselineStats is a token's transaction-velocity z-score
// against its own rolling history.
type VelocityBaselineStats struct {
	Z    float64 `json:"z"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// VelocityBaseline tracks per-token rolling transaction velocity so
// decision records can annotate how anomalous the current tick is.
type VelocityBaseline struct {
	windowBars int
	history    map[string][]float64
}

// NewVelocityBaseline builds a tracker keeping windowBars samples per
// token (minimum 1).
func NewVelocityBaseline(windowBars int) *VelocityBaseline {
	if windowBars < 1 {
		windowBars = 1
	}
	return &VelocityBaseline{
		windowBars: windowBars,
		history:    make(map[string][]float64),
	}
}

// Observe records this tick's velocity for the token and returns the
// z-score against the history accumulated before this observation.
// Returns nil until at least two prior samples exist.
func (vb *VelocityBaseline) Observe(tokenMint string, velocity float64) *VelocityBaselineStats {
	recent := vb.history[tokenMint]
	if len(recent) > vb.windowBars {
		recent = recent[len(recent)-vb.windowBars:]
	}

	var stats *VelocityBaselineStats
	if len(recent) >= 2 {
		mean := 0.0
		for _, v := range recent {
			mean += v
		}
		mean /= float64(len(recent))
		variance := 0.0
		for _, v := range recent {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(recent))
		std := math.Sqrt(variance)
		z := 0.0
		if std > 0 {
			z = (velocity - mean) / std
		}
		stats = &VelocityBaselineStats{Z: z, Mean: mean, Std: std}
	}

	updated := append(recent, velocity)
	if len(updated) > vb.windowBars {
		updated = updated[len(updated)-vb.windowBars:]
	}
	vb.history[tokenMint] = updated
	return stats
}
