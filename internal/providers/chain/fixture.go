package chain

import (
	"context"
	"fmt"
	"strings"
)

// FixtureIntel synthesizes deterministic transaction histories per
// token so the full chain pipeline (aggregation, override thresholds,
// risk veto) can run offline. Calibration winners get a healthy flow
// profile, the headfake gets a toxic one, and everything else gets
// quiet background activity.
type FixtureIntel struct{}

var _ Intel = (*FixtureIntel)(nil)

// NewFixtureIntel builds the fixture provider.
func NewFixtureIntel() *FixtureIntel {
	return &FixtureIntel{}
}

type txProfile struct {
	txCount     int
	spanSec     int64
	swaps       int
	liqAdds     int
	liqRemoves  int
	netNative   float64
	source      string
}

func (p txProfile) build(address string) []EnhancedTx {
	txs := make([]EnhancedTx, 0, p.txCount)
	baseTS := int64(1700000000)
	step := int64(1)
	if p.txCount > 1 {
		step = p.spanSec / int64(p.txCount-1)
	}

	for i := 0; i < p.txCount; i++ {
		tx := EnhancedTx{
			Signature: fmt.Sprintf("SIG_%s_%03d", address, i),
			Type:      "TRANSFER",
			Source:    p.source,
			Timestamp: baseTS + int64(i)*step,
		}
		switch {
		case i < p.swaps:
			tx.Type = "SWAP"
		case i < p.swaps+p.liqAdds:
			tx.Type = "LIQUIDITY_ADD"
		case i < p.swaps+p.liqAdds+p.liqRemoves:
			tx.Type = "LIQUIDITY_REMOVE"
		}
		if i == 0 && p.netNative != 0 {
			transfer := NativeTransfer{Amount: p.netNative}
			if p.netNative > 0 {
				transfer.ToUser = address
				transfer.FromUser = "POOL"
			} else {
				transfer.Amount = -p.netNative
				transfer.ToUser = "POOL"
				transfer.FromUser = address
			}
			tx.NativeTransfers = []NativeTransfer{transfer}
		}
		txs = append(txs, tx)
	}
	return txs
}

// EnhancedTxsByAddress serves the profile matching the address.
// Winners aggregate to ~6 tx/min with heavy swap flow and net inflow;
// the headfake aggregates to a spike (velocity over 8, thin count)
// with liquidity pulls and net outflow.
func (fi *FixtureIntel) EnhancedTxsByAddress(_ context.Context, address string, limit int) ([]EnhancedTx, error) {
	var profile txProfile
	switch {
	case strings.Contains(address, "WIN"):
		profile = txProfile{
			txCount: 60, spanSec: 600, swaps: 18, liqAdds: 2,
			netNative: 500, source: "RAYDIUM",
		}
	case strings.Contains(address, "FAKE"):
		profile = txProfile{
			txCount: 25, spanSec: 180, swaps: 5, liqRemoves: 2,
			netNative: -1200, source: "PUMP_FUN",
		}
	default:
		profile = txProfile{
			txCount: 10, spanSec: 600, swaps: 4,
			netNative: 50, source: "RAYDIUM",
		}
	}

	txs := profile.build(address)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}
