// Package backtest replays candle datasets through the decision
// pipeline and reports trade metrics.
package backtest

import (
	"encoding/json"
	"math"

	"github.com/memescout/memescout/internal/domain"
)

// Trade is one simulated fill.
type Trade struct {
	TS          int64         `json:"ts"`
	Action      domain.Action `json:"action"`
	Price       float64       `json:"price"`
	Qty         float64       `json:"qty"`
	NotionalUSD float64       `json:"notional_usd"`
	PnLUSD      float64       `json:"pnl_usd"`
	ReturnPct   float64       `json:"return_pct"`
	ReasonCodes string        `json:"reason_codes"`
}

// Metrics summarizes a trade sequence against starting capital.
type Metrics struct {
	TotalReturnPct    float64 `json:"total_return_pct"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct"`
	ProfitFactor      float64 `json:"profit_factor"`
	WinRate           float64 `json:"win_rate"`
	AvgTradeReturnPct float64 `json:"avg_trade_return_pct"`
	TradeCount        int     `json:"trade_count"`
}

// MarshalJSON encodes an infinite profit factor as the string "inf",
// which encoding/json otherwise rejects.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	out := struct {
		alias
		ProfitFactor any `json:"profit_factor"`
	}{alias: alias(m), ProfitFactor: m.ProfitFactor}
	if math.IsInf(m.ProfitFactor, 1) {
		out.ProfitFactor = "inf"
	}
	return json.Marshal(out)
}

// EquityCurve accumulates realized PnL onto starting capital, one
// point per trade plus the initial point.
func EquityCurve(startingCapital float64, trades []Trade) []float64 {
	curve := make([]float64, 0, len(trades)+1)
	equity := startingCapital
	curve = append(curve, equity)
	for _, t := range trades {
		equity += t.PnLUSD
		curve = append(curve, equity)
	}
	return curve
}

// MaxDrawdown returns the deepest peak-to-trough fraction of the curve.
func MaxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0]
	maxDD := 0.0
	for _, value := range curve {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			if dd := (peak - value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// ProfitFactor is gross wins over gross losses. All-winning sequences
// return +Inf, empty or all-flat ones 0.
func ProfitFactor(trades []Trade) float64 {
	wins, losses := 0.0, 0.0
	for _, t := range trades {
		if t.PnLUSD > 0 {
			wins += t.PnLUSD
		}
		if t.PnLUSD < 0 {
			losses -= t.PnLUSD
		}
	}
	if losses == 0 {
		if wins > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return wins / losses
}

// WinRate is the fraction of trades with positive PnL.
func WinRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnLUSD > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// AvgTradeReturn is the mean per-trade return.
func AvgTradeReturn(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range trades {
		sum += t.ReturnPct
	}
	return sum / float64(len(trades))
}

// ComputeMetrics derives the full metric set.
func ComputeMetrics(startingCapital float64, trades []Trade) Metrics {
	curve := EquityCurve(startingCapital, trades)
	totalReturn := 0.0
	if startingCapital > 0 {
		totalReturn = curve[len(curve)-1]/startingCapital - 1
	}
	return Metrics{
		TotalReturnPct:    totalReturn,
		MaxDrawdownPct:    MaxDrawdown(curve),
		ProfitFactor:      ProfitFactor(trades),
		WinRate:           WinRate(trades),
		AvgTradeReturnPct: AvgTradeReturn(trades),
		TradeCount:        len(trades),
	}
}
