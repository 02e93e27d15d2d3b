package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
)

func activeChain() *domain.ChainFeatures {
	return &domain.ChainFeatures{
		TxCount:         60,
		SwapCount:       18,
		LiquidityEvents: 2,
		NetNative:       500,
		VelocityPerMin:  6,
	}
}

func TestApplyChainOverrideFlagsConfirmed(t *testing.T) {
	cfg := config.Default()
	snap := testSnapshot(1.0, 0.99, 1.01, 50)

	ApplyChainOverrideFlags(snap, activeChain(), cfg)
	assert.True(t, snap.Features.ChainConfirmed)
	assert.True(t, snap.Features.ChainOverride)
	assert.True(t, snap.Features.ProvisionalCandidate)
	assert.NotNil(t, snap.Chain)
}

func TestApplyChainOverrideFlagsStrictBreakoutWins(t *testing.T) {
	cfg := config.Default()
	snap := testSnapshot(1.0, 0.99, 1.01, 50)
	snap.Features.BreakoutStrict = true

	ApplyChainOverrideFlags(snap, activeChain(), cfg)
	assert.True(t, snap.Features.ChainConfirmed)
	assert.False(t, snap.Features.ChainOverride)
	assert.True(t, snap.Features.ProvisionalCandidate)
}

func TestApplyChainOverrideFlagsBelowThresholds(t *testing.T) {
	cfg := config.Default()
	snap := testSnapshot(1.0, 0.99, 1.01, 50)
	quiet := &domain.ChainFeatures{TxCount: 10, SwapCount: 4, NetNative: 50, VelocityPerMin: 1}

	ApplyChainOverrideFlags(snap, quiet, cfg)
	assert.False(t, snap.Features.ChainConfirmed)
	assert.False(t, snap.Features.ChainOverride)
	assert.False(t, snap.Features.ProvisionalCandidate)
}

func TestApplyChainRiskVetoesToxicEntry(t *testing.T) {
	entry := domain.Proposal{Action: domain.ActionProbeBuy, ReasonCodes: []string{domain.ReasonProvisionalChainEntry}}
	toxic := &domain.ChainFeatures{
		TxCount:               25,
		NetNative:             -1200,
		LiquidityRemoveEvents: 2,
		VelocityPerMin:        8.9,
	}

	got := ApplyChainRisk(entry, toxic)
	assert.Equal(t, domain.ActionHold, got.Action)
	assert.Contains(t, got.ReasonCodes, domain.ReasonProvisionalChainEntry)
	assert.Contains(t, got.ReasonCodes, domain.ReasonNetOutflow)
	assert.Contains(t, got.ReasonCodes, domain.ReasonLiquidityRisk)
	assert.Contains(t, got.ReasonCodes, domain.ReasonDeadAfterSpike)
}

func TestApplyChainRiskPassesExits(t *testing.T) {
	exit := domain.Proposal{Action: domain.ActionExitFull, ReasonCodes: []string{domain.ReasonStructStop}}
	toxic := &domain.ChainFeatures{NetNative: -1200}

	got := ApplyChainRisk(exit, toxic)
	assert.Equal(t, domain.ActionExitFull, got.Action)
	assert.Equal(t, []string{domain.ReasonStructStop}, got.ReasonCodes)
}

func TestApplyChainRiskAnnotatesHold(t *testing.T) {
	hold := domain.Hold(nil, 0, domain.ReasonNoPriceExpansion)
	got := ApplyChainRisk(hold, &domain.ChainFeatures{NetNative: -100})
	assert.Equal(t, domain.ActionHold, got.Action)
	assert.Equal(t, []string{domain.ReasonNoPriceExpansion, domain.ReasonNetOutflow}, got.ReasonCodes)
}

func TestApplyChainRiskCleanPassthrough(t *testing.T) {
	entry := domain.Proposal{Action: domain.ActionProbeBuy, ReasonCodes: []string{domain.ReasonBreakoutConfirm}}
	got := ApplyChainRisk(entry, activeChain())
	assert.Equal(t, entry, got)

	got = ApplyChainRisk(entry, nil)
	assert.Equal(t, entry, got)
}

func TestVelocityBaselineObserve(t *testing.T) {
	vb := NewVelocityBaseline(100)

	assert.Nil(t, vb.Observe("MINT_A", 1))
	assert.Nil(t, vb.Observe("MINT_A", 3))

	stats := vb.Observe("MINT_A", 4)
	require.NotNil(t, stats)
	assert.InDelta(t, 2.0, stats.Mean, 1e-9)
	assert.InDelta(t, 1.0, stats.Std, 1e-9)
	assert.InDelta(t, 2.0, stats.Z, 1e-9)

	// Tokens keep independent histories.
	assert.Nil(t, vb.Observe("MINT_B", 5))
}

func TestVelocityBaselineWindowTrim(t *testing.T) {
	vb := NewVelocityBaseline(2)
	vb.Observe("MINT_A", 1)
	vb.Observe("MINT_A", 1)
	vb.Observe("MINT_A", 100)

	// History is [1, 100] now, the first sample rolled out.
	stats := vb.Observe("MINT_A", 50)
	require.NotNil(t, stats)
	assert.InDelta(t, 50.5, stats.Mean, 1e-9)
}
