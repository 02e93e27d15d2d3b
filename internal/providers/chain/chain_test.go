package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetFlows(t *testing.T) {
	tx := EnhancedTx{
		NativeTransfers: []NativeTransfer{
			{FromUser: "WHALE", ToUser: "POOL", Amount: 500},
			{FromUser: "POOL", ToUser: "SNIPER", Amount: 120},
		},
		TokenTransfers: []TokenTransfer{
			{FromUser: "POOL", ToUser: "WHALE", Mint: "MINT_A", Amount: 1000},
			{FromUser: "POOL", ToUser: "WHALE", Mint: "MINT_B", Amount: 9999},
		},
	}

	assert.InDelta(t, 380.0, NetNativeFlow(tx, "POOL"), 1e-9)
	assert.InDelta(t, -500.0, NetNativeFlow(tx, "WHALE"), 1e-9)
	assert.InDelta(t, -1000.0, NetTokenFlow(tx, "POOL", "MINT_A"), 1e-9)
	assert.InDelta(t, 1000.0, NetTokenFlow(tx, "WHALE", "MINT_A"), 1e-9)
	assert.Zero(t, NetTokenFlow(tx, "POOL", "MINT_C"))
}

func TestComputeFeatures(t *testing.T) {
	txs := []EnhancedTx{
		{Type: "SWAP", Source: "RAYDIUM", Timestamp: 1700000000},
		{Type: "swap", Source: "RAYDIUM", Timestamp: 1700000060},
		{Type: "LIQUIDITY_ADD", Source: "PUMP_FUN", Timestamp: 1700000120},
		{Type: "LIQUIDITY_REMOVE", Source: "RAYDIUM", Timestamp: 1700000180},
		{Type: "TRANSFER", Timestamp: 1700000240},
	}

	f := ComputeFeatures(txs, "POOL", "MINT_A")
	assert.Equal(t, 5.0, f.TxCount)
	assert.Equal(t, 2.0, f.SwapCount)
	assert.Equal(t, 2.0, f.LiquidityEvents)
	assert.Equal(t, 1.0, f.LiquidityRemoveEvents)
	assert.Equal(t, []string{"PUMP_FUN", "RAYDIUM"}, f.Sources)
	// 5 txs over a 4 minute span.
	assert.InDelta(t, 1.25, f.VelocityPerMin, 1e-9)
}

func TestComputeFeaturesBurstFloorsSpan(t *testing.T) {
	txs := []EnhancedTx{
		{Type: "SWAP", Timestamp: 1700000000},
		{Type: "SWAP", Timestamp: 1700000001},
	}
	f := ComputeFeatures(txs, "POOL", "MINT_A")
	assert.InDelta(t, 2.0, f.VelocityPerMin, 1e-9)
}

func TestComputeFeaturesEmpty(t *testing.T) {
	f := ComputeFeatures(nil, "POOL", "MINT_A")
	assert.Zero(t, f.TxCount)
	assert.Zero(t, f.VelocityPerMin)
	assert.Empty(t, f.Sources)
}

func TestFixtureIntelProfiles(t *testing.T) {
	fi := NewFixtureIntel()
	ctx := context.Background()

	winTxs, err := fi.EnhancedTxsByAddress(ctx, "MINT_WIN_PERFECT", 25)
	require.NoError(t, err)
	assert.Len(t, winTxs, 25)

	win := ComputeFeatures(winTxs, "MINT_WIN_PERFECT", "MINT_WIN_PERFECT")
	assert.GreaterOrEqual(t, win.SwapCount, 10.0)
	assert.GreaterOrEqual(t, win.NetNative, 0.0)
	assert.Zero(t, win.LiquidityRemoveEvents)
	assert.GreaterOrEqual(t, win.VelocityPerMin, 5.0)
	assert.Less(t, win.VelocityPerMin, 8.0)

	fakeTxs, err := fi.EnhancedTxsByAddress(ctx, "MINT_FAKE_HEADFAKE", 25)
	require.NoError(t, err)
	fake := ComputeFeatures(fakeTxs, "MINT_FAKE_HEADFAKE", "MINT_FAKE_HEADFAKE")
	assert.Negative(t, fake.NetNative)
	assert.Positive(t, fake.LiquidityRemoveEvents)
	assert.GreaterOrEqual(t, fake.VelocityPerMin, 8.0)

	quietTxs, err := fi.EnhancedTxsByAddress(ctx, "MINT_TOKEN03", 25)
	require.NoError(t, err)
	quiet := ComputeFeatures(quietTxs, "MINT_TOKEN03", "MINT_TOKEN03")
	assert.Less(t, quiet.VelocityPerMin, 5.0)
	assert.Less(t, quiet.SwapCount, 10.0)
}
