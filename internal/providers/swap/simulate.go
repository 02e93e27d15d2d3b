package swap

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// SimulatedRouter prices swaps against a constant-product pool model
// and fabricates transactions without touching a chain. In confirm
// mode executions stop at needs_signature; in auto mode they come back
// submitted with a synthetic signature.
type SimulatedRouter struct {
	mode         string
	liquidityUSD decimal.Decimal
	feeBps       int64
}

var _ Service = (*SimulatedRouter)(nil)

// NewSimulatedRouter builds a router. liquidityUSD shapes the price
// impact curve; feeBps is charged on the output side.
func NewSimulatedRouter(mode string, liquidityUSD float64, feeBps int) (*SimulatedRouter, error) {
	if mode != ModeConfirm && mode != ModeAuto {
		return nil, errors.Errorf("unknown trading mode %q", mode)
	}
	if liquidityUSD <= 0 {
		return nil, errors.New("liquidity must be positive")
	}
	return &SimulatedRouter{
		mode:         mode,
		liquidityUSD: decimal.NewFromFloat(liquidityUSD),
		feeBps:       int64(feeBps),
	}, nil
}

// GetQuote prices the swap. Impact grows linearly with the notional's
// share of pool liquidity; min-out applies the requested slippage on
// top of the impacted amount.
func (sr *SimulatedRouter) GetQuote(_ context.Context, params QuoteParams) (Quote, error) {
	if params.Amount <= 0 {
		return Quote{}, errors.New("quote amount must be positive")
	}

	inAmount := decimal.NewFromInt(params.Amount)

	impact := inAmount.Div(sr.liquidityUSD.Mul(decimal.NewFromInt(1_000_000)))
	one := decimal.NewFromInt(1)
	fee := decimal.NewFromInt(sr.feeBps).Div(decimal.NewFromInt(10_000))

	outAmount := inAmount.Mul(one.Sub(impact)).Mul(one.Sub(fee)).Floor()
	slippage := decimal.NewFromInt(int64(params.SlippageBps)).Div(decimal.NewFromInt(10_000))
	minOut := outAmount.Mul(one.Sub(slippage)).Floor()

	return Quote{
		InputMint:      params.InputMint,
		OutputMint:     params.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		MinOutAmount:   minOut,
		PriceImpactPct: impact.Mul(decimal.NewFromInt(100)),
		SlippageBps:    params.SlippageBps,
	}, nil
}

// ExecuteSwap builds the synthetic transaction and, in auto mode,
// "signs" it.
func (sr *SimulatedRouter) ExecuteSwap(_ context.Context, quote Quote, userPubkey string, _ Options) (Result, error) {
	if userPubkey == "" {
		return Result{}, errors.New("user pubkey required")
	}

	payload := fmt.Sprintf("%s:%s->%s:%s", userPubkey, quote.InputMint, quote.OutputMint, quote.InAmount)
	tx := base64.StdEncoding.EncodeToString([]byte(payload))

	if sr.mode == ModeConfirm {
		return Result{
			Mode:            ModeConfirm,
			Status:          "needs_signature",
			Message:         "user confirmation required",
			SwapTransaction: tx,
		}, nil
	}

	return Result{
		Mode:            ModeAuto,
		Status:          "submitted",
		Message:         "swap signed and submitted",
		SwapTransaction: tx,
		Signature:       "SIMULATED_" + uuid.NewString(),
	}, nil
}
