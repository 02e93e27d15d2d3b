// Package chain supplies on-chain transaction intelligence: enhanced
// transaction histories and the aggregated activity features the
// engine folds into its candidacy and risk checks.
package chain

import (
	"context"
	"sort"
	"strings"

	"github.com/memescout/memescout/internal/domain"
)

// NativeTransfer is a native-unit movement inside a transaction.
type NativeTransfer struct {
	FromUser string  `json:"fromUserAccount"`
	ToUser   string  `json:"toUserAccount"`
	Amount   float64 `json:"amount"`
}

// TokenTransfer is an SPL token movement inside a transaction.
type TokenTransfer struct {
	FromUser string  `json:"fromUserAccount"`
	ToUser   string  `json:"toUserAccount"`
	Mint     string  `json:"mint"`
	Amount   float64 `json:"tokenAmount"`
}

// EnhancedTx is one decoded transaction touching the tracked address.
type EnhancedTx struct {
	Signature       string           `json:"signature"`
	Type            string           `json:"type"`
	Source          string           `json:"source"`
	Timestamp       int64            `json:"timestamp"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
}

// Intel serves transaction history for an address.
type Intel interface {
	EnhancedTxsByAddress(ctx context.Context, address string, limit int) ([]EnhancedTx, error)
}

// NetNativeFlow sums native units moved into minus out of the address
// within one transaction.
func NetNativeFlow(tx EnhancedTx, address string) float64 {
	net := 0.0
	for _, t := range tx.NativeTransfers {
		if t.ToUser == address {
			net += t.Amount
		}
		if t.FromUser == address {
			net -= t.Amount
		}
	}
	return net
}

// NetTokenFlow sums the mint's token units moved into minus out of the
// address within one transaction.
func NetTokenFlow(tx EnhancedTx, address, mint string) float64 {
	net := 0.0
	for _, t := range tx.TokenTransfers {
		if t.Mint != mint {
			continue
		}
		if t.ToUser == address {
			net += t.Amount
		}
		if t.FromUser == address {
			net -= t.Amount
		}
	}
	return net
}

// ComputeFeatures aggregates a transaction batch into the activity
// features the engine consumes. Velocity divides the batch size by its
// timestamp span in minutes, floored at one minute so a single-bar
// burst does not divide by zero.
func ComputeFeatures(txs []EnhancedTx, address, mint string) *domain.ChainFeatures {
	f := &domain.ChainFeatures{TxCount: float64(len(txs))}

	sources := make(map[string]struct{})
	var minTS, maxTS int64
	for i, tx := range txs {
		f.NetNative += NetNativeFlow(tx, address)
		f.NetToken += NetTokenFlow(tx, address, mint)

		switch strings.ToUpper(tx.Type) {
		case "SWAP":
			f.SwapCount++
		case "LIQUIDITY_ADD":
			f.LiquidityEvents++
		case "LIQUIDITY_REMOVE":
			f.LiquidityEvents++
			f.LiquidityRemoveEvents++
		}
		if tx.Source != "" {
			sources[tx.Source] = struct{}{}
		}

		if i == 0 || tx.Timestamp < minTS {
			minTS = tx.Timestamp
		}
		if i == 0 || tx.Timestamp > maxTS {
			maxTS = tx.Timestamp
		}
	}

	if len(txs) > 0 {
		spanMin := float64(maxTS-minTS) / 60
		if spanMin < 1 {
			spanMin = 1
		}
		f.VelocityPerMin = f.TxCount / spanMin
	}

	for s := range sources {
		f.Sources = append(f.Sources, s)
	}
	sort.Strings(f.Sources)

	return f
}
