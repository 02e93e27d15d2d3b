// Package engine implements the per-instrument decision pipeline:
// lifecycle state machine, snapshot builder, rule policy, risk
// validator, cross-instrument ranker and the tick orchestrator.
package engine

import (
	"sort"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
)

// Status is the lifecycle phase of one instrument.
type Status int

const (
	StatusScout Status = iota
	StatusProbe
	StatusTrade
	StatusCooldown
)

// String returns the wire representation of the status.
func (s Status) String() string {
	switch s {
	case StatusScout:
		return "SCOUT"
	case StatusProbe:
		return "PROBE"
	case StatusTrade:
		return "TRADE"
	case StatusCooldown:
		return "COOLDOWN"
	default:
		return "unknown"
	}
}

// MarshalText makes statuses serialize as their wire strings.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// noIndex marks index fields that are not set.
const noIndex = -1

// TokenState is the mutable per-instrument lifecycle state. It is
// owned exclusively by the orchestrator (or backtest driver) and
// mutated only through AdvanceTime, ApplyAction and the policy's
// documented pending-breakout/progress bookkeeping.
type TokenState struct {
	Status Status

	ProbeEntryPrice float64
	ProbeEntryLow   float64
	AddEntryPrice   float64
	PositionUSD     float64
	TimeInTrade     int
	CooldownLeft    int
	ScaleOutStage   int

	LastExitTS      int64
	LastExitPrice   float64
	LastExitIndex   int
	LastExitWasStop bool

	EntryIndex int
	EntryPrice float64

	// Pending-breakout confirmation protocol: all three fields are set
	// together when a strict breakout arms, and cleared together.
	PendingBreakoutIndex        int
	PendingBreakoutLevel        float64
	PendingBreakoutExpiresIndex int

	MaxFavorablePrice     float64
	ProgressHit           bool
	ProgressDeadlineIndex int
}

// NewTokenState returns a fresh SCOUT state.
func NewTokenState() *TokenState {
	return &TokenState{
		Status:                      StatusScout,
		LastExitIndex:               noIndex,
		EntryIndex:                  noIndex,
		PendingBreakoutIndex:        noIndex,
		PendingBreakoutExpiresIndex: noIndex,
		ProgressDeadlineIndex:       noIndex,
	}
}

// PendingBreakout reports whether the confirmation protocol is armed.
func (s *TokenState) PendingBreakout() bool {
	return s.PendingBreakoutIndex != noIndex
}

// ClearPendingBreakout disarms the confirmation protocol.
func (s *TokenState) ClearPendingBreakout() {
	s.PendingBreakoutIndex = noIndex
	s.PendingBreakoutLevel = 0
	s.PendingBreakoutExpiresIndex = noIndex
}

// AdvanceTime moves per-tick counters: time in trade while positioned,
// cooldown countdown while locked out, transitioning back to SCOUT when
// the cooldown expires. Called exactly once per instrument per tick,
// before the policy runs.
func (s *TokenState) AdvanceTime() {
	if s.Status == StatusProbe || s.Status == StatusTrade {
		s.TimeInTrade++
	}
	if s.Status == StatusCooldown && s.CooldownLeft > 0 {
		s.CooldownLeft--
		if s.CooldownLeft <= 0 {
			s.Status = StatusScout
			s.CooldownLeft = 0
		}
	}
}

// ApplyAction transitions the state machine after a proposal survived
// validation. exitReasons is the validated proposal's reason list; a
// STRUCT_STOP exit triples the subsequent re-entry lockout.
func (s *TokenState) ApplyAction(action domain.Action, snap *domain.Snapshot, cfg *config.Config, exitReasons []string) {
	switch action {
	case domain.ActionProbeBuy:
		s.ClearPendingBreakout()
		s.Status = StatusProbe
		s.ProbeEntryPrice = snap.LastClose
		s.ProbeEntryLow = snap.LastLow
		s.PositionUSD = cfg.Positioning.CapitalUSD * cfg.Positioning.ProbePct
		s.TimeInTrade = 0
		s.ScaleOutStage = 0
		s.EntryIndex = snap.CandleIndex
		s.EntryPrice = snap.LastClose
		s.MaxFavorablePrice = snap.LastClose
		s.ProgressHit = false
		s.ProgressDeadlineIndex = noIndex
		if maxWait := cfg.Rules.Progress.MaxWaitCandles; maxWait > 0 && s.EntryIndex != noIndex {
			s.ProgressDeadlineIndex = s.EntryIndex + maxWait
		}

	case domain.ActionAddBuy:
		s.ClearPendingBreakout()
		s.Status = StatusTrade
		s.AddEntryPrice = snap.LastClose
		s.PositionUSD += cfg.Positioning.CapitalUSD * cfg.Positioning.AddPct
		if s.EntryIndex == noIndex {
			s.EntryIndex = snap.CandleIndex
		}
		if s.EntryPrice == 0 {
			s.EntryPrice = snap.LastClose
		}

	case domain.ActionScaleOut20:
		scalePct := cfg.Positioning.TP1ScaleOutPct
		if s.ScaleOutStage > 0 {
			scalePct = cfg.Positioning.TP2ScaleOutPct
		}
		s.PositionUSD *= 1 - scalePct
		if s.PositionUSD < 0 {
			s.PositionUSD = 0
		}
		s.ScaleOutStage++

	case domain.ActionExitFull:
		s.ClearPendingBreakout()
		s.Status = StatusCooldown
		s.CooldownLeft = cfg.Engine.CooldownCandles
		s.ProbeEntryPrice = 0
		s.ProbeEntryLow = 0
		s.AddEntryPrice = 0
		s.PositionUSD = 0
		s.TimeInTrade = 0
		s.ScaleOutStage = 0
		s.EntryIndex = noIndex
		s.EntryPrice = 0
		s.MaxFavorablePrice = 0
		s.ProgressHit = false
		s.ProgressDeadlineIndex = noIndex
		s.LastExitTS = snap.NowTS
		s.LastExitPrice = snap.LastClose
		s.LastExitIndex = snap.CandleIndex
		s.LastExitWasStop = containsReason(exitReasons, domain.ReasonStructStop)
	}
}

func containsReason(reasons []string, code string) bool {
	for _, r := range reasons {
		if r == code {
			return true
		}
	}
	return false
}

// InferIntervalSec derives the candle interval as the median positive
// timestamp delta across the window. Irregular spacing is common on
// thin pairs, so index-based comparisons are preferred where indexes
// exist; this is the fallback for timestamp math. Defaults to 60.
func InferIntervalSec(candles []domain.Candle) int64 {
	var diffs []int64
	for i := 1; i < len(candles); i++ {
		if d := candles[i].T - candles[i-1].T; d > 0 {
			diffs = append(diffs, d)
		}
	}
	if len(diffs) == 0 {
		return 60
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i] < diffs[j] })
	return diffs[len(diffs)/2]
}

// lockoutCandles returns the effective lockout span; a stop-loss exit
// triples it.
func lockoutCandles(cfg *config.Config, lastExitWasStop bool) int {
	lockout := cfg.Reentry.LockoutCandles
	if lastExitWasStop {
		lockout *= 3
	}
	return lockout
}

// ReentryQuery carries the inputs of a re-entry lockout check.
type ReentryQuery struct {
	NowTS        int64
	NowIndex     int
	CurrentClose float64
	// VolOK is the volume-confirmation override supplied by the policy.
	VolOK       bool
	IntervalSec int64
}

// CanReenter reports whether an entry is allowed given the last exit.
// Index-based distance wins over timestamp distance when both sides
// carry indexes. Inside the lockout window an entry is still allowed
// when price has broken min_breakout_pct above the exit price, or when
// the volume override is set.
func (s *TokenState) CanReenter(q ReentryQuery, cfg *config.Config) bool {
	if s.LastExitPrice == 0 {
		return true
	}
	if s.LastExitTS == 0 && s.LastExitIndex == noIndex {
		return true
	}

	lockout := lockoutCandles(cfg, s.LastExitWasStop)
	if lockout <= 0 {
		return true
	}

	priceBreak := q.CurrentClose >= s.LastExitPrice*(1+cfg.Reentry.MinBreakoutPct)

	if q.NowIndex != noIndex && s.LastExitIndex != noIndex {
		if q.NowIndex-s.LastExitIndex < lockout {
			return priceBreak || q.VolOK
		}
		return true
	}

	if s.LastExitTS == 0 {
		return true
	}

	candleSeconds := q.IntervalSec
	if candleSeconds <= 0 {
		candleSeconds = int64(cfg.Reentry.CandleSeconds)
		if candleSeconds <= 0 {
			candleSeconds = 60
		}
	}
	lockoutUntil := s.LastExitTS + int64(lockout)*candleSeconds
	if q.NowTS < lockoutUntil {
		return priceBreak || q.VolOK
	}
	return true
}

// refreshReentryLockout clears the stop flag once the tripled lockout
// has fully elapsed, so a later ordinary exit is not still penalized.
func (s *TokenState) refreshReentryLockout(nowTS int64, nowIndex int, intervalSec int64, cfg *config.Config) {
	if !s.LastExitWasStop {
		return
	}
	lockout := lockoutCandles(cfg, true)
	if lockout <= 0 {
		s.LastExitWasStop = false
		return
	}
	if nowIndex != noIndex && s.LastExitIndex != noIndex {
		if nowIndex-s.LastExitIndex >= lockout {
			s.LastExitWasStop = false
		}
		return
	}
	if s.LastExitTS == 0 {
		s.LastExitWasStop = false
		return
	}
	if nowTS >= s.LastExitTS+int64(lockout)*intervalSec {
		s.LastExitWasStop = false
	}
}
