package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
)

func testSnapshot(close, low, high float64, index int) *domain.Snapshot {
	return &domain.Snapshot{
		Pair:        domain.PairStats{PairID: "PAIR_TEST", TokenMint: "MINT_TEST", LiquidityUSD: 150000},
		NowTS:       1700000000 + int64(index)*60,
		CandleIndex: index,
		LastClose:   close,
		LastLow:     low,
		LastHigh:    high,
	}
}

func TestProposeCooldownHolds(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusCooldown
	s.CooldownLeft = 5

	p := ProposeAction(testSnapshot(1.0, 0.99, 1.01, 50), s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonCooldown}, p.ReasonCodes)
	assert.Equal(t, cfg.Risk.MaxSlippageBps, p.Guards["max_slippage_bps"])
}

func TestProposeScoutMissingSignals(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	snap := testSnapshot(1.0, 0.99, 1.01, 50)
	snap.Features = domain.FeatureSet{RangeCompressed: true, PriceExpanded: false}

	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonNoPriceExpansion}, p.ReasonCodes)
}

func TestProposeScoutStrictBreakoutArmsPending(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	snap := testSnapshot(1.08, 1.05, 1.09, 50)
	snap.Features = domain.FeatureSet{
		BreakoutStrict: true, RangeCompressed: true, PriceExpanded: true, HighestClose: 1.0,
	}

	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonBreakoutPending}, p.ReasonCodes)
	require.True(t, s.PendingBreakout())
	assert.Equal(t, 1.0, s.PendingBreakoutLevel)
	assert.Equal(t, 53, s.PendingBreakoutExpiresIndex)
}

func TestProposeScoutPendingConfirms(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.PendingBreakoutIndex = 50
	s.PendingBreakoutLevel = 1.0
	s.PendingBreakoutExpiresIndex = 53

	snap := testSnapshot(1.02, 0.99, 1.03, 51)
	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionProbeBuy, p.Action)
	assert.Equal(t, []string{domain.ReasonBreakoutConfirm}, p.ReasonCodes)
	assert.False(t, s.PendingBreakout())
}

func TestProposeScoutPendingWaits(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.PendingBreakoutIndex = 50
	s.PendingBreakoutLevel = 1.0
	s.PendingBreakoutExpiresIndex = 53

	// Close above the level but under the confirmation margin.
	snap := testSnapshot(1.005, 0.99, 1.01, 51)
	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonBreakoutWait}, p.ReasonCodes)
	assert.True(t, s.PendingBreakout())
}

func TestProposeScoutPendingRetraceTooDeep(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.PendingBreakoutIndex = 50
	s.PendingBreakoutLevel = 1.0
	s.PendingBreakoutExpiresIndex = 53

	snap := testSnapshot(1.02, 0.90, 1.03, 51)
	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonBreakoutWait}, p.ReasonCodes)
}

func TestProposeScoutPendingExpires(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.PendingBreakoutIndex = 50
	s.PendingBreakoutLevel = 1.0
	s.PendingBreakoutExpiresIndex = 53

	snap := testSnapshot(0.99, 0.98, 1.0, 54)
	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonBreakoutExpired}, p.ReasonCodes)
	assert.False(t, s.PendingBreakout())
}

func TestProposeScoutLiveModeEntersImmediately(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	snap := testSnapshot(1.08, 1.05, 1.09, noIndex)
	snap.Features = domain.FeatureSet{
		BreakoutStrict: true, RangeCompressed: true, PriceExpanded: true, HighestClose: 1.0,
	}

	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionProbeBuy, p.Action)
	assert.Equal(t, []string{domain.ReasonBreakout}, p.ReasonCodes)
	assert.False(t, s.PendingBreakout())
}

func TestProposeScoutReentryLockoutBlocksBreakout(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.LastExitPrice = 1.1
	s.LastExitIndex = 45

	snap := testSnapshot(1.08, 1.05, 1.09, 50)
	snap.Features = domain.FeatureSet{
		BreakoutStrict: true, RangeCompressed: true, PriceExpanded: true, HighestClose: 1.0,
	}

	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonReentryLockout}, p.ReasonCodes)
}

func TestProposeScoutChainOverrideEntry(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	snap := testSnapshot(1.02, 1.0, 1.03, 50)
	snap.Features = domain.FeatureSet{ChainOverride: true, ProvisionalCandidate: true}

	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionProbeBuy, p.Action)
	assert.Equal(t, []string{
		domain.ReasonNoRangeCompression,
		domain.ReasonNoPriceExpansion,
		domain.ReasonProvisionalChainEntry,
	}, p.ReasonCodes)
}

func TestProposeProbeStructStop(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusProbe
	s.ProbeEntryPrice = 1.0
	s.ProbeEntryLow = 0.95
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressDeadlineIndex = 60

	p := ProposeAction(testSnapshot(0.90, 0.89, 0.91, 51), s, cfg)
	assert.Equal(t, domain.ActionExitFull, p.Action)
	assert.Equal(t, []string{domain.ReasonStructStop}, p.ReasonCodes)
}

func TestProposeProbeAddTrigger(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusProbe
	s.ProbeEntryPrice = 1.0
	s.ProbeEntryLow = 0.95
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressDeadlineIndex = 60

	p := ProposeAction(testSnapshot(1.06, 1.03, 1.09, 52), s, cfg)
	assert.Equal(t, domain.ActionAddBuy, p.Action)
	assert.Equal(t, []string{domain.ReasonAddTrigger}, p.ReasonCodes)
	assert.True(t, s.ProgressHit)
}

func TestProposeProbeWaitsForAdd(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusProbe
	s.ProbeEntryPrice = 1.0
	s.ProbeEntryLow = 0.95
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressDeadlineIndex = 60

	p := ProposeAction(testSnapshot(1.02, 1.0, 1.03, 52), s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonWaitAdd}, p.ReasonCodes)
}

func TestProposeProgressStopAtDeadline(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusProbe
	s.ProbeEntryPrice = 1.0
	s.ProbeEntryLow = 0.95
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressDeadlineIndex = 60

	p := ProposeAction(testSnapshot(1.01, 1.0, 1.02, 60), s, cfg)
	assert.Equal(t, domain.ActionExitFull, p.Action)
	assert.Equal(t, []string{domain.ReasonProgressStop}, p.ReasonCodes)
}

func TestProposeBreakevenStopAfterProgress(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusTrade
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressHit = true
	s.MaxFavorablePrice = 1.15

	p := ProposeAction(testSnapshot(0.98, 0.97, 0.99, 55), s, cfg)
	assert.Equal(t, domain.ActionExitFull, p.Action)
	assert.Equal(t, []string{domain.ReasonTrailStop}, p.ReasonCodes)
}

func TestProposeTrailStopUsesRecentLows(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusTrade
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressHit = true
	s.MaxFavorablePrice = 1.15

	snap := testSnapshot(1.02, 1.01, 1.03, 55)
	snap.Candles = []domain.Candle{
		{L: 1.05}, {L: 1.06}, {L: 1.04}, {L: 1.01},
	}

	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionExitFull, p.Action)
	assert.Equal(t, []string{domain.ReasonTrailStop}, p.ReasonCodes)
}

func TestProposeTradeTimeStop(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusTrade
	s.ProbeEntryPrice = 1.0
	s.ProbeEntryLow = 0.95
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressHit = true

	p := ProposeAction(testSnapshot(1.2, 1.18, 1.22, 80), s, cfg)
	assert.Equal(t, domain.ActionExitFull, p.Action)
	assert.Equal(t, []string{domain.ReasonTimeStop}, p.ReasonCodes)
}

func TestProposeTradeSupportBreak(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusTrade
	s.EntryPrice = 0.8
	s.EntryIndex = 50
	s.ProgressHit = true

	snap := testSnapshot(0.85, 0.84, 0.86, 55)
	snap.SupportLevel = &domain.Zone{Low: 0.9, High: 0.92}

	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionExitFull, p.Action)
	assert.Equal(t, []string{domain.ReasonSupportBreak}, p.ReasonCodes)
}

func TestProposeTradeScaleOutLadder(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusTrade
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressHit = true

	snap := testSnapshot(1.21, 1.19, 1.22, 55)
	snap.ResistanceLevels = []domain.Zone{
		{Low: 1.20, High: 1.22},
		{Low: 1.30, High: 1.32},
		{Low: 1.40, High: 1.42},
	}

	p := ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionScaleOut20, p.Action)
	assert.Equal(t, []string{domain.ReasonR1Touch}, p.ReasonCodes)

	s.ScaleOutStage = 1
	snap = testSnapshot(1.31, 1.29, 1.32, 56)
	snap.ResistanceLevels = []domain.Zone{
		{Low: 1.20, High: 1.22},
		{Low: 1.30, High: 1.32},
		{Low: 1.40, High: 1.42},
	}
	p = ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionScaleOut20, p.Action)
	assert.Equal(t, []string{domain.ReasonR2Touch}, p.ReasonCodes)

	s.ScaleOutStage = 2
	snap = testSnapshot(1.41, 1.39, 1.42, 57)
	snap.ResistanceLevels = []domain.Zone{
		{Low: 1.20, High: 1.22},
		{Low: 1.30, High: 1.32},
		{Low: 1.40, High: 1.42},
	}
	p = ProposeAction(snap, s, cfg)
	assert.Equal(t, domain.ActionExitFull, p.Action)
	assert.Equal(t, []string{domain.ReasonR3Touch}, p.ReasonCodes)
}

func TestProposeTradeHolds(t *testing.T) {
	cfg := config.Default()
	s := NewTokenState()
	s.Status = StatusTrade
	s.EntryPrice = 1.0
	s.EntryIndex = 50
	s.ProgressHit = true

	p := ProposeAction(testSnapshot(1.1, 1.08, 1.12, 55), s, cfg)
	assert.Equal(t, domain.ActionHold, p.Action)
	assert.Equal(t, []string{domain.ReasonHoldTrade}, p.ReasonCodes)
}
