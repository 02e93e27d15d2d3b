package engine

import (
	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
)

// ProposeAction evaluates one instrument for one tick and returns the
// action the rules call for. The policy mutates only the state fields
// that belong to it: pending-breakout arming, the stop flag refresh and
// progress bookkeeping. Position transitions happen in ApplyAction
// after validation.
func ProposeAction(snap *domain.Snapshot, state *TokenState, cfg *config.Config) domain.Proposal {
	expiresAt := snap.NowTS + int64(cfg.Engine.PollIntervalSec)
	guards := map[string]int{"max_slippage_bps": cfg.Risk.MaxSlippageBps}

	hold := func(reasons ...string) domain.Proposal {
		return domain.Hold(guards, expiresAt, reasons...)
	}
	act := func(action domain.Action, reasons ...string) domain.Proposal {
		return domain.Proposal{Action: action, ReasonCodes: reasons, Guards: guards, ExpiresAt: expiresAt}
	}

	switch state.Status {
	case StatusCooldown:
		return hold(domain.ReasonCooldown)

	case StatusScout:
		return proposeScout(snap, state, cfg, hold, act)

	case StatusProbe:
		if p, ok := progressStops(snap, state, cfg); ok {
			return act(p.action, p.reason)
		}
		if state.ProbeEntryLow > 0 {
			stopLevel := state.ProbeEntryLow * (1 - cfg.Stops.StopBufferPct)
			if snap.LastClose < stopLevel {
				return act(domain.ActionExitFull, domain.ReasonStructStop)
			}
		}
		if state.ProbeEntryPrice > 0 && state.ProbeEntryLow > 0 {
			threshold := state.ProbeEntryPrice * (1 + cfg.Rules.AddTriggerUpPct)
			if snap.LastClose >= threshold && snap.LastClose > state.ProbeEntryLow {
				return act(domain.ActionAddBuy, domain.ReasonAddTrigger)
			}
		}
		return hold(domain.ReasonWaitAdd)

	case StatusTrade:
		if p, ok := progressStops(snap, state, cfg); ok {
			return act(p.action, p.reason)
		}
		if state.ProbeEntryLow > 0 {
			stopLevel := state.ProbeEntryLow * (1 - cfg.Stops.StopBufferPct)
			if snap.LastClose < stopLevel {
				return act(domain.ActionExitFull, domain.ReasonStructStop)
			}
		}
		if timeStop := cfg.Rules.TimeStopCandles; timeStop > 0 {
			if snap.CandleIndex != noIndex && state.EntryIndex != noIndex {
				if snap.CandleIndex-state.EntryIndex >= timeStop {
					return act(domain.ActionExitFull, domain.ReasonTimeStop)
				}
			} else if state.TimeInTrade >= timeStop {
				return act(domain.ActionExitFull, domain.ReasonTimeStop)
			}
		}
		if snap.SupportLevel != nil && snap.LastClose < snap.SupportLevel.Low {
			return act(domain.ActionExitFull, domain.ReasonSupportBreak)
		}
		levels := snap.ResistanceLevels
		if len(levels) > 0 {
			switch {
			case state.ScaleOutStage == 0 && snap.LastClose >= levels[0].Low:
				return act(domain.ActionScaleOut20, domain.ReasonR1Touch)
			case state.ScaleOutStage == 1 && len(levels) >= 2 && snap.LastClose >= levels[1].Low:
				return act(domain.ActionScaleOut20, domain.ReasonR2Touch)
			case state.ScaleOutStage >= 2 && len(levels) >= 3 && snap.LastClose >= levels[2].Low:
				return act(domain.ActionExitFull, domain.ReasonR3Touch)
			}
		}
		return hold(domain.ReasonHoldTrade)
	}

	return hold(domain.ReasonDefaultHold)
}

// pendingBreakoutExpiryBars is how many bars a confirmation may take
// before the armed breakout lapses.
const pendingBreakoutExpiryBars = 3

func proposeScout(
	snap *domain.Snapshot,
	state *TokenState,
	cfg *config.Config,
	hold func(...string) domain.Proposal,
	act func(domain.Action, ...string) domain.Proposal,
) domain.Proposal {
	intervalSec := InferIntervalSec(snap.Candles)
	state.refreshReentryLockout(snap.NowTS, snap.CandleIndex, intervalSec, cfg)

	f := snap.Features
	var missing []string
	if !f.RangeCompressed {
		missing = append(missing, domain.ReasonNoRangeCompression)
	}
	if !f.PriceExpanded {
		missing = append(missing, domain.ReasonNoPriceExpansion)
	}

	currentIndex := snap.CandleIndex
	if state.PendingBreakout() {
		if currentIndex == noIndex {
			state.ClearPendingBreakout()
		} else {
			if state.PendingBreakoutExpiresIndex != noIndex && currentIndex > state.PendingBreakoutExpiresIndex {
				state.ClearPendingBreakout()
				return hold(domain.ReasonBreakoutExpired)
			}
			level := state.PendingBreakoutLevel
			if level <= 0 {
				state.ClearPendingBreakout()
				return hold(domain.ReasonBreakoutExpired)
			}

			confirmClose := snap.LastClose >= level*(1+cfg.Rules.ConfirmMinCloseAbovePct)
			retraceOK := snap.LastLow >= level*(1-cfg.Rules.ConfirmMaxRetracePct)
			if snap.LastClose > level && confirmClose && retraceOK {
				state.ClearPendingBreakout()
				return act(domain.ActionProbeBuy, domain.ReasonBreakoutConfirm)
			}
			return hold(domain.ReasonBreakoutWait)
		}
	}

	if f.BreakoutStrict {
		currentVol := 0.0
		if len(snap.Candles) > 0 {
			currentVol = snap.Candles[len(snap.Candles)-1].V
		}
		volOK := false
		if cfg.Reentry.VolMultUnlock > 0 && f.AvgVolume > 0 {
			volOK = currentVol > cfg.Reentry.VolMultUnlock*f.AvgVolume
		}
		q := ReentryQuery{
			NowTS:        snap.NowTS,
			NowIndex:     snap.CandleIndex,
			CurrentClose: snap.LastClose,
			VolOK:        volOK,
			IntervalSec:  intervalSec,
		}
		if !state.CanReenter(q, cfg) {
			return hold(domain.ReasonReentryLockout)
		}
		if currentIndex == noIndex {
			return act(domain.ActionProbeBuy, domain.ReasonBreakout)
		}
		state.PendingBreakoutIndex = currentIndex
		level := f.HighestClose
		if level <= 0 {
			level = snap.LastClose
		}
		state.PendingBreakoutLevel = level
		state.PendingBreakoutExpiresIndex = currentIndex + pendingBreakoutExpiryBars
		return hold(domain.ReasonBreakoutPending)
	}

	if f.ChainOverride {
		q := ReentryQuery{
			NowTS:        snap.NowTS,
			NowIndex:     snap.CandleIndex,
			CurrentClose: snap.LastClose,
			IntervalSec:  intervalSec,
		}
		if !state.CanReenter(q, cfg) {
			return hold(domain.ReasonReentryLockout)
		}
		reasons := append(append([]string(nil), missing...), domain.ReasonProvisionalChainEntry)
		return act(domain.ActionProbeBuy, reasons...)
	}

	if len(missing) == 0 {
		missing = []string{domain.ReasonNoPriceExpansion}
	}
	return hold(missing...)
}

type stopDecision struct {
	action domain.Action
	reason string
}

// progressStops runs the shared PROBE/TRADE progress bookkeeping: track
// the max favorable price, flip the progress flag once price moves
// min_move_pct above entry, exit on the progress deadline while flat,
// and after progress enforce the breakeven/trailing stop.
func progressStops(snap *domain.Snapshot, state *TokenState, cfg *config.Config) (stopDecision, bool) {
	progress := cfg.Rules.Progress

	entryPrice := state.EntryPrice
	if entryPrice == 0 {
		entryPrice = state.ProbeEntryPrice
	}
	if entryPrice <= 0 {
		return stopDecision{}, false
	}

	if state.MaxFavorablePrice == 0 {
		state.MaxFavorablePrice = entryPrice
	}
	if snap.LastClose > state.MaxFavorablePrice {
		state.MaxFavorablePrice = snap.LastClose
	}

	if !state.ProgressHit && snap.LastHigh >= entryPrice*(1+progress.MinMovePct) {
		state.ProgressHit = true
	}

	if !state.ProgressHit {
		deadline := state.ProgressDeadlineIndex
		if deadline == noIndex && state.EntryIndex != noIndex && progress.MaxWaitCandles > 0 {
			deadline = state.EntryIndex + progress.MaxWaitCandles
			state.ProgressDeadlineIndex = deadline
		}
		if deadline != noIndex && snap.CandleIndex != noIndex && snap.CandleIndex >= deadline {
			return stopDecision{action: domain.ActionExitFull, reason: domain.ReasonProgressStop}, true
		}
		return stopDecision{}, false
	}

	stopLevel := 0.0
	stopSet := false
	if progress.BreakevenAfterProgress {
		stopLevel = entryPrice
		stopSet = true
	}
	if progress.TrailAfterProgress {
		lookback := progress.TrailLookbackLows
		if lookback > 0 && len(snap.Candles) >= lookback+1 {
			prior := snap.Candles[len(snap.Candles)-(lookback+1) : len(snap.Candles)-1]
			trailLow := prior[0].L
			for _, c := range prior[1:] {
				if c.L < trailLow {
					trailLow = c.L
				}
			}
			if !stopSet || trailLow > stopLevel {
				stopLevel = trailLow
			}
			stopSet = true
		}
	}
	if stopSet && snap.LastClose < stopLevel {
		return stopDecision{action: domain.ActionExitFull, reason: domain.ReasonTrailStop}, true
	}
	return stopDecision{}, false
}
