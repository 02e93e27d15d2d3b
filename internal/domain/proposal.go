package domain

// Reason codes emitted by the policy, validator, ranker and chain-risk
// overlay. Logged verbatim, so treat them as a wire format.
const (
	ReasonCooldown               = "COOLDOWN"
	ReasonBreakout               = "BREAKOUT"
	ReasonBreakoutPending        = "BREAKOUT_PENDING"
	ReasonBreakoutConfirm        = "BREAKOUT_CONFIRM"
	ReasonBreakoutWait           = "BREAKOUT_WAIT"
	ReasonBreakoutExpired        = "BREAKOUT_EXPIRED"
	ReasonReentryLockout         = "REENTRY_LOCKOUT"
	ReasonNoRangeCompression     = "NO_RANGE_COMPRESSION"
	ReasonNoPriceExpansion       = "NO_PRICE_EXPANSION"
	ReasonProvisionalChainEntry  = "PROVISIONAL_CHAIN_OVERRIDE"
	ReasonWaitAdd                = "WAIT_ADD"
	ReasonAddTrigger             = "ADD_TRIGGER"
	ReasonStructStop             = "STRUCT_STOP"
	ReasonProgressStop           = "PROGRESS_STOP"
	ReasonTrailStop              = "TRAIL_STOP"
	ReasonTimeStop               = "TIME_STOP"
	ReasonSupportBreak           = "SUPPORT_BREAK"
	ReasonR1Touch                = "R1_TOUCH"
	ReasonR2Touch                = "R2_TOUCH"
	ReasonR3Touch                = "R3_TOUCH"
	ReasonHoldTrade              = "HOLD_TRADE"
	ReasonDefaultHold            = "DEFAULT_HOLD"
	ReasonRankedOut              = "RANKED_OUT"
	ReasonNetOutflow             = "NET_OUTFLOW"
	ReasonLiquidityRisk          = "LIQUIDITY_RISK"
	ReasonDeadAfterSpike         = "DEAD_AFTER_SPIKE"
	ReasonForcedExit             = "FORCED_EXIT"
	RejectCooldown               = "REJECT_COOLDOWN"
	RejectLowLiquidity           = "REJECT_LOW_LIQUIDITY"
	RejectNoPosition             = "REJECT_NO_POSITION"
	RejectSlippageTooHigh        = "REJECT_SLIPPAGE_TOO_HIGH"
)

// Proposal is a per-tick action candidate. Values are immutable:
// ranker, validator and chain-risk overlay never mutate a proposal in
// place, they construct a replacement via Demote/WithReasons.
type Proposal struct {
	Action      Action         `json:"action"`
	ReasonCodes []string       `json:"reason_codes"`
	Guards      map[string]int `json:"guards,omitempty"`
	ExpiresAt   int64          `json:"expires_at,omitempty"`
}

// Hold builds a HOLD proposal carrying the given reasons.
func Hold(guards map[string]int, expiresAt int64, reasons ...string) Proposal {
	return Proposal{Action: ActionHold, ReasonCodes: reasons, Guards: guards, ExpiresAt: expiresAt}
}

// Demote returns a HOLD copy of the proposal with the given reason list,
// preserving guards and expiry.
func (p Proposal) Demote(reasons []string) Proposal {
	return Proposal{
		Action:      ActionHold,
		ReasonCodes: reasons,
		Guards:      p.Guards,
		ExpiresAt:   p.ExpiresAt,
	}
}

// WithReasons returns a copy of the proposal with the reason list
// replaced, keeping the action.
func (p Proposal) WithReasons(reasons []string) Proposal {
	return Proposal{
		Action:      p.Action,
		ReasonCodes: reasons,
		Guards:      p.Guards,
		ExpiresAt:   p.ExpiresAt,
	}
}

// HasReason reports whether code is among the proposal's reason codes.
func (p Proposal) HasReason(code string) bool {
	for _, r := range p.ReasonCodes {
		if r == code {
			return true
		}
	}
	return false
}
