// Package swap quotes and executes token swaps. The engine only ever
// talks to the Service interface; the simulated router stands in for a
// live aggregator during offline and calibration runs.
package swap

import (
	"context"

	"github.com/shopspring/decimal"
)

// Trading modes. Confirm mode stops at a signable transaction; auto
// mode signs and submits.
const (
	ModeConfirm = "confirm"
	ModeAuto    = "auto"
)

// QuoteParams describes the swap to price. Amount is in base units of
// the input mint.
type QuoteParams struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      int64  `json:"amount"`
	SlippageBps int    `json:"slippageBps"`
	SwapMode    string `json:"swapMode,omitempty"`
}

// Quote is a priced route. Amounts are base units.
type Quote struct {
	InputMint      string          `json:"inputMint"`
	OutputMint     string          `json:"outputMint"`
	InAmount       decimal.Decimal `json:"inAmount"`
	OutAmount      decimal.Decimal `json:"outAmount"`
	MinOutAmount   decimal.Decimal `json:"otherAmountThreshold"`
	PriceImpactPct decimal.Decimal `json:"priceImpactPct"`
	SlippageBps    int             `json:"slippageBps"`
}

// Options tunes transaction construction.
type Options struct {
	WrapAndUnwrapSol        bool  `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit bool  `json:"dynamicComputeUnitLimit"`
	PrioritizationFee       int64 `json:"prioritizationFeeLamports,omitempty"`
}

// DefaultOptions mirrors aggregator defaults.
func DefaultOptions() Options {
	return Options{WrapAndUnwrapSol: true, DynamicComputeUnitLimit: true}
}

// Result is the outcome of an execution attempt.
type Result struct {
	Mode            string `json:"mode"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	SwapTransaction string `json:"swap_transaction,omitempty"`
	Signature       string `json:"signature,omitempty"`
}

// Service prices and executes swaps.
type Service interface {
	GetQuote(ctx context.Context, params QuoteParams) (Quote, error)
	ExecuteSwap(ctx context.Context, quote Quote, userPubkey string, opts Options) (Result, error)
}
