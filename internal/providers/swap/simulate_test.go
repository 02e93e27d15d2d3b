package swap

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimulatedRouterValidation(t *testing.T) {
	_, err := NewSimulatedRouter("yolo", 100000, 30)
	assert.Error(t, err)

	_, err = NewSimulatedRouter(ModeAuto, 0, 30)
	assert.Error(t, err)

	r, err := NewSimulatedRouter(ModeConfirm, 100000, 30)
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestGetQuotePricing(t *testing.T) {
	r, err := NewSimulatedRouter(ModeAuto, 100000, 30)
	require.NoError(t, err)

	quote, err := r.GetQuote(context.Background(), QuoteParams{
		InputMint:   "USDC",
		OutputMint:  "MINT_A",
		Amount:      100_000_000,
		SlippageBps: 250,
	})
	require.NoError(t, err)

	// 100 USDC into a 100k pool: 0.1% impact, then 30 bps fee.
	wantOut := decimal.NewFromInt(100_000_000).
		Mul(decimal.NewFromFloat(0.999)).
		Mul(decimal.NewFromFloat(0.997)).Floor()
	assert.True(t, quote.OutAmount.Equal(wantOut), "out=%s want=%s", quote.OutAmount, wantOut)
	assert.True(t, quote.MinOutAmount.LessThan(quote.OutAmount))
	assert.True(t, quote.PriceImpactPct.Equal(decimal.NewFromFloat(0.1)))
	assert.Equal(t, 250, quote.SlippageBps)
}

func TestGetQuoteRejectsZeroAmount(t *testing.T) {
	r, err := NewSimulatedRouter(ModeAuto, 100000, 30)
	require.NoError(t, err)

	_, err = r.GetQuote(context.Background(), QuoteParams{Amount: 0})
	assert.Error(t, err)
}

func TestExecuteSwapConfirmMode(t *testing.T) {
	r, err := NewSimulatedRouter(ModeConfirm, 100000, 30)
	require.NoError(t, err)

	quote, err := r.GetQuote(context.Background(), QuoteParams{
		InputMint: "USDC", OutputMint: "MINT_A", Amount: 1_000_000, SlippageBps: 100,
	})
	require.NoError(t, err)

	result, err := r.ExecuteSwap(context.Background(), quote, "USER_PUBKEY", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, ModeConfirm, result.Mode)
	assert.Equal(t, "needs_signature", result.Status)
	assert.Empty(t, result.Signature)
	assert.NotEmpty(t, result.SwapTransaction)
}

func TestExecuteSwapAutoMode(t *testing.T) {
	r, err := NewSimulatedRouter(ModeAuto, 100000, 30)
	require.NoError(t, err)

	quote, err := r.GetQuote(context.Background(), QuoteParams{
		InputMint: "USDC", OutputMint: "MINT_A", Amount: 1_000_000, SlippageBps: 100,
	})
	require.NoError(t, err)

	result, err := r.ExecuteSwap(context.Background(), quote, "USER_PUBKEY", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, result.Mode)
	assert.Equal(t, "submitted", result.Status)
	assert.Contains(t, result.Signature, "SIMULATED_")
}

func TestExecuteSwapRequiresPubkey(t *testing.T) {
	r, err := NewSimulatedRouter(ModeAuto, 100000, 30)
	require.NoError(t, err)

	_, err = r.ExecuteSwap(context.Background(), Quote{}, "", DefaultOptions())
	assert.Error(t, err)
}
