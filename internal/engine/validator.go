package engine

import (
	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
)

// EstimateSlippageBps models price impact as a linear function of the
// notional's share of pool liquidity, clamped to [10, 5000] bps.
// Unknown or empty liquidity is treated as untradeable (10000 bps).
func EstimateSlippageBps(amountUSD, liquidityUSD float64) int {
	if liquidityUSD <= 0 {
		return 10000
	}
	bps := int(amountUSD / liquidityUSD * 10000)
	if bps < 10 {
		return 10
	}
	if bps > 5000 {
		return 5000
	}
	return bps
}

// ActionNotionalUSD sizes the order the action implies. Entries draw
// from configured capital fractions, scale-outs and exits from the
// currently held position.
func ActionNotionalUSD(action domain.Action, state *TokenState, cfg *config.Config) float64 {
	switch action {
	case domain.ActionProbeBuy:
		return cfg.Positioning.CapitalUSD * cfg.Positioning.ProbePct
	case domain.ActionAddBuy:
		return cfg.Positioning.CapitalUSD * cfg.Positioning.AddPct
	case domain.ActionScaleOut20:
		scalePct := cfg.Positioning.TP1ScaleOutPct
		if state.ScaleOutStage > 0 {
			scalePct = cfg.Positioning.TP2ScaleOutPct
		}
		return state.PositionUSD * scalePct
	case domain.ActionExitFull:
		return state.PositionUSD
	default:
		return 0
	}
}

// ValidateProposal applies the risk gates to a proposal. HOLD passes
// through untouched. A rejected proposal is demoted to HOLD and its
// reason list is replaced by the REJECT_* codes, dropping the policy's
// original reasons; the trade log keeps the pre-validation proposal, so
// nothing is lost by the replacement.
func ValidateProposal(p domain.Proposal, snap *domain.Snapshot, state *TokenState, cfg *config.Config) domain.Proposal {
	if p.Action == domain.ActionHold {
		return p
	}

	var rejected []string

	if state.Status == StatusCooldown {
		rejected = append(rejected, domain.RejectCooldown)
	}

	liquidity := snap.Pair.LiquidityUSD
	if liquidity < cfg.Risk.MinLiquidityUSD {
		rejected = append(rejected, domain.RejectLowLiquidity)
	}

	if p.Action.IsExit() && state.PositionUSD <= 0 {
		rejected = append(rejected, domain.RejectNoPosition)
	}

	notional := ActionNotionalUSD(p.Action, state, cfg)
	if EstimateSlippageBps(notional, liquidity) > cfg.Risk.MaxSlippageBps {
		rejected = append(rejected, domain.RejectSlippageTooHigh)
	}

	if len(rejected) > 0 {
		return p.Demote(rejected)
	}
	return p
}
