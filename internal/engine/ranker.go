package engine

import (
	"sort"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
	"github.com/memescout/memescout/internal/signals"
)

// Candidate is one instrument's full tick context flowing through the
// rank/validate/execute stages.
type Candidate struct {
	Pair      domain.PairStats
	Symbol    string
	TokenMint string
	State     *TokenState
	Snapshot  *domain.Snapshot
	Chain     *domain.ChainFeatures
	Proposal  domain.Proposal

	MomentumScore    float64
	ScoreAdjustments []signals.MomentumComponent
	scored           bool
}

// ScoreAdjustmentComponents builds the bonus/penalty components applied
// on top of the raw momentum score: a bonus when the chain override is
// active, a penalty for provisional candidates without a strict candle
// breakout.
func ScoreAdjustmentComponents(f domain.FeatureSet, cfg *config.Config) []signals.MomentumComponent {
	var adjustments []signals.MomentumComponent
	if f.ChainOverride {
		bonus := cfg.Breakout.ChainOverrideScoreBonus
		adjustments = append(adjustments, signals.MomentumComponent{
			Feature: "chain_override_bonus", Contribution: bonus, Value: bonus,
		})
	}
	if !f.BreakoutStrict && f.ProvisionalCandidate {
		penalty := cfg.Breakout.WeakBreakoutScorePenalty
		adjustments = append(adjustments, signals.MomentumComponent{
			Feature: "weak_breakout_penalty", Contribution: -penalty, Value: penalty,
		})
	}
	return adjustments
}

// AdjustedScore applies the adjustment components to a raw score.
func AdjustedScore(raw float64, adjustments []signals.MomentumComponent) float64 {
	for _, adj := range adjustments {
		raw += adj.Contribution
	}
	return raw
}

// SetScore pins the candidate's score, bypassing the adjusted momentum
// computation. The backtester uses this to rank on the raw strict score.
func (c *Candidate) SetScore(score float64) {
	c.MomentumScore = score
	c.scored = true
}

// Score computes (and caches) the candidate's adjusted momentum score.
func (c *Candidate) Score(cfg *config.Config) float64 {
	if c.scored {
		return c.MomentumScore
	}
	detail := signals.Momentum(c.Snapshot.Candles, cfg.Rules.MomentumLookback)
	c.ScoreAdjustments = ScoreAdjustmentComponents(c.Snapshot.Features, cfg)
	c.MomentumScore = AdjustedScore(detail.Total, c.ScoreAdjustments)
	c.scored = true
	return c.MomentumScore
}

// RankEntries keeps only the top-N PROBE_BUY proposals per tick by
// adjusted momentum score. Ranking engages once at least
// min_candidates_before_rank entries compete; ranked-out entries are
// demoted to HOLD with RANKED_OUT appended to their reasons.
func RankEntries(candidates []*Candidate, cfg *config.Config) {
	topN := cfg.Rules.TopNPerTick
	minCandidates := cfg.Rules.MinCandidatesBeforeRank
	if minCandidates < 1 {
		minCandidates = 1
	}

	var entries []*Candidate
	for _, c := range candidates {
		if c.Proposal.Action == domain.ActionProbeBuy {
			entries = append(entries, c)
		}
	}
	if topN <= 0 || len(entries) < minCandidates {
		return
	}

	for _, e := range entries {
		e.Score(cfg)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MomentumScore > entries[j].MomentumScore
	})

	for _, e := range entries[min(topN, len(entries)):] {
		reasons := append(append([]string(nil), e.Proposal.ReasonCodes...), domain.ReasonRankedOut)
		e.Proposal = e.Proposal.Demote(reasons)
	}
}

// RankedEntry is one row of the per-tick leaderboard surfaced in run
// summaries.
type RankedEntry struct {
	Symbol          string             `json:"symbol"`
	TokenMint       string             `json:"token_mint"`
	PairID          string             `json:"pair_id"`
	MomentumScore   float64            `json:"momentum_score"`
	LastClose       float64            `json:"last_close"`
	ScoreComponents map[string]float64 `json:"score_components"`
}

// BuildRankedSummary snapshots the tick's top-N leaderboard across all
// candidates, entries or not.
func BuildRankedSummary(candidates []*Candidate, cfg *config.Config) []RankedEntry {
	ranked := make([]RankedEntry, 0, len(candidates))
	for _, c := range candidates {
		symbol := c.Symbol
		if symbol == "" {
			symbol = c.TokenMint
		}
		f := c.Snapshot.Features
		breakout := 0.0
		if f.BreakoutStrict {
			breakout = 1
		}
		ranked = append(ranked, RankedEntry{
			Symbol:        symbol,
			TokenMint:     c.TokenMint,
			PairID:        c.Pair.PairID,
			MomentumScore: c.Score(cfg),
			LastClose:     c.Snapshot.LastClose,
			ScoreComponents: map[string]float64{
				"breakout":     breakout,
				"return_pct":   f.ReturnPct,
				"volume_accel": f.VolumeAccel,
				"range_ratio":  f.RangeRatio,
			},
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MomentumScore > ranked[j].MomentumScore
	})

	topN := cfg.Rules.TopNPerTick
	if topN <= 0 {
		topN = 5
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
