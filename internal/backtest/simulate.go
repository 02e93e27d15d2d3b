package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
	"github.com/memescout/memescout/internal/engine"
	"github.com/memescout/memescout/internal/signals"
	"github.com/memescout/memescout/internal/storage/tradelog"
)

// portfolio tracks one pair's cash and inventory. Accounting runs in
// decimal so repeated partial exits do not accumulate float drift.
type portfolio struct {
	cash    decimal.Decimal
	qty     decimal.Decimal
	costUSD decimal.Decimal
}

func newPortfolio(capital float64) *portfolio {
	return &portfolio{cash: decimal.NewFromFloat(capital)}
}

// applyCosts shifts the execution price by fees plus slippage, against
// the trader on both sides.
func applyCosts(price float64, buy bool, costs config.CostsConfig) float64 {
	fee := costs.FeeBpsPerSide / 10000
	slip := costs.SlippageBps / 10000
	if buy {
		return price * (1 + fee + slip)
	}
	return price * (1 - fee - slip)
}

// buy spends notional USD at execPrice. Returns false when cash is
// short.
func (p *portfolio) buy(notionalUSD, execPrice float64) (qty float64, ok bool) {
	notional := decimal.NewFromFloat(notionalUSD)
	if p.cash.LessThan(notional) {
		return 0, false
	}
	price := decimal.NewFromFloat(execPrice)
	if price.IsZero() {
		return 0, false
	}
	bought := notional.Div(price)
	p.cash = p.cash.Sub(notional)
	p.qty = p.qty.Add(bought)
	p.costUSD = p.costUSD.Add(notional)
	return bought.InexactFloat64(), true
}

// sell disposes scalePct of the position at execPrice and realizes
// proportional cost basis.
func (p *portfolio) sell(scalePct, execPrice float64) (qty, proceeds, pnl, returnPct float64, ok bool) {
	if p.qty.Sign() <= 0 {
		return 0, 0, 0, 0, false
	}
	sellQty := p.qty.Mul(decimal.NewFromFloat(scalePct))
	price := decimal.NewFromFloat(execPrice)
	gross := sellQty.Mul(price)
	costBasis := p.costUSD.Mul(sellQty).Div(p.qty)
	profit := gross.Sub(costBasis)

	p.cash = p.cash.Add(gross)
	p.qty = p.qty.Sub(sellQty)
	p.costUSD = p.costUSD.Sub(costBasis)

	ret := 0.0
	if costBasis.Sign() > 0 {
		ret = profit.Div(costBasis).InexactFloat64()
	}
	return sellQty.InexactFloat64(), gross.InexactFloat64(), profit.InexactFloat64(), ret, true
}

func (p *portfolio) positionUSD() float64 {
	return p.costUSD.InexactFloat64()
}

// syntheticPair fabricates pool stats for a replayed window: liquidity
// deep enough to clear the risk gates, recent volume from the window
// tail.
func syntheticPair(pairID, tokenMint string, window []domain.Candle, cfg *config.Config) domain.PairStats {
	liquidity := cfg.Risk.MinLiquidityUSD * 2
	if liquidity < 100000 {
		liquidity = 100000
	}
	volume5m := 0.0
	start := len(window) - 5
	if start < 0 {
		start = 0
	}
	for _, c := range window[start:] {
		volume5m += c.V
	}
	last := window[len(window)-1]
	return domain.PairStats{
		PairID:       pairID,
		TokenMint:    tokenMint,
		PriceUSD:     last.C,
		LiquidityUSD: liquidity,
		Volume5m:     volume5m,
		Txns5m:       int(volume5m / 100),
	}
}

// PairResult is one pair's simulation outcome.
type PairResult struct {
	Metrics Metrics `json:"metrics"`
	Trades  []Trade `json:"trades"`
}

// SimulatePair replays a single candle series through the pipeline
// with an isolated portfolio.
func SimulatePair(pairID, tokenMint string, candles []domain.Candle, cfg *config.Config) PairResult {
	capital := cfg.Positioning.CapitalUSD
	port := newPortfolio(capital)
	state := engine.NewTokenState()
	var trades []Trade

	lookback := cfg.Rules.BreakoutLookback
	maxWindow := cfg.Backtest.MaxWindowCandles
	if maxWindow < lookback+5 {
		maxWindow = lookback + 5
	}
	startIndex := lookback + 5
	if startIndex < 10 {
		startIndex = 10
	}

	for i := startIndex; i < len(candles); i++ {
		windowStart := i + 1 - maxWindow
		if windowStart < 0 {
			windowStart = 0
		}
		window := candles[windowStart : i+1]

		pair := syntheticPair(pairID, tokenMint, window, cfg)
		state.AdvanceTime()
		snap := engine.BuildSnapshot(pair, window, cfg, i, nil)
		proposal := engine.ProposeAction(snap, state, cfg)
		validated := engine.ValidateProposal(proposal, snap, state, cfg)
		if validated.Action == domain.ActionHold {
			continue
		}

		if trade, ok := settle(port, validated, snap, state, cfg); ok {
			trades = append(trades, trade)
			state.ApplyAction(validated.Action, snap, cfg, validated.ReasonCodes)
			state.PositionUSD = port.positionUSD()
		}
	}

	if trade, ok := forceExit(port, candles, cfg); ok {
		trades = append(trades, trade)
	}

	return PairResult{Metrics: ComputeMetrics(capital, trades), Trades: trades}
}

// settle books the validated action against the portfolio. Entries
// that cannot be funded and exits without inventory return false.
func settle(port *portfolio, validated domain.Proposal, snap *domain.Snapshot, state *engine.TokenState, cfg *config.Config) (Trade, bool) {
	notionalUSD := engine.ActionNotionalUSD(validated.Action, state, cfg)
	price := snap.LastClose
	reasonCodes := joinReasons(validated.ReasonCodes)

	if validated.Action.IsEntry() {
		execPrice := applyCosts(price, true, cfg.Costs)
		qty, ok := port.buy(notionalUSD, execPrice)
		if !ok {
			return Trade{}, false
		}
		return Trade{
			TS:          snap.NowTS,
			Action:      validated.Action,
			Price:       execPrice,
			Qty:         qty,
			NotionalUSD: notionalUSD,
			ReasonCodes: reasonCodes,
		}, true
	}

	scalePct := 1.0
	if validated.Action == domain.ActionScaleOut20 {
		scalePct = cfg.Positioning.TP1ScaleOutPct
		if state.ScaleOutStage > 0 {
			scalePct = cfg.Positioning.TP2ScaleOutPct
		}
	}
	execPrice := applyCosts(price, false, cfg.Costs)
	qty, proceeds, pnl, returnPct, ok := port.sell(scalePct, execPrice)
	if !ok {
		return Trade{}, false
	}
	return Trade{
		TS:          snap.NowTS,
		Action:      validated.Action,
		Price:       execPrice,
		Qty:         qty,
		NotionalUSD: proceeds,
		PnLUSD:      pnl,
		ReturnPct:   returnPct,
		ReasonCodes: reasonCodes,
	}, true
}

// forceExit liquidates any leftover inventory at the final close.
func forceExit(port *portfolio, candles []domain.Candle, cfg *config.Config) (Trade, bool) {
	if port.qty.Sign() <= 0 {
		return Trade{}, false
	}
	last := candles[len(candles)-1]
	execPrice := applyCosts(last.C, false, cfg.Costs)
	qty, proceeds, pnl, returnPct, ok := port.sell(1, execPrice)
	if !ok {
		return Trade{}, false
	}
	return Trade{
		TS:          last.T,
		Action:      domain.ActionExitFull,
		Price:       execPrice,
		Qty:         qty,
		NotionalUSD: proceeds,
		PnLUSD:      pnl,
		ReturnPct:   returnPct,
		ReasonCodes: domain.ReasonForcedExit,
	}, true
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += ","
		}
		out += r
	}
	return out
}

// Summary is the backtest run digest written to summary.json.
type Summary struct {
	PairCount int                `json:"pair_count"`
	Pairs     map[string]Metrics `json:"pairs"`
	Combined  Metrics            `json:"combined"`
}

// RunResult points at a completed backtest's artifacts.
type RunResult struct {
	RunDir  string
	Summary Summary
}

// RunBacktest replays every supported data file under dataDir through
// the pipeline with cross-pair entry ranking, then writes per-pair
// trade CSVs, summary.json and reason tallies into a timestamped run
// directory.
func RunBacktest(dataDir string, cfg *config.Config, maxPairs int, outputBase string) (*RunResult, error) {
	if outputBase == "" {
		outputBase = "backtests"
	}
	runDir := filepath.Join(outputBase, time.Now().UTC().Format("20060102_150405"))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create run dir %s", runDir)
	}

	files, err := FindDataFiles(dataDir, maxPairs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no supported data files found in %s", dataDir)
	}

	series := make(map[string][]domain.Candle)
	var pairNames []string
	for _, path := range files {
		pairName := PairNameFromPath(path)
		candles, err := LoadCandles(path, cfg.Backtest.MaxCandlesPerPair)
		if err != nil {
			return nil, err
		}
		if len(candles) < 30 {
			continue
		}
		series[pairName] = candles
		pairNames = append(pairNames, pairName)
	}
	if len(series) == 0 {
		return nil, errors.Errorf("no valid pair files found in %s", dataDir)
	}

	capital := cfg.Positioning.CapitalUSD
	lookback := cfg.Rules.BreakoutLookback
	maxWindow := cfg.Backtest.MaxWindowCandles
	if maxWindow < lookback+5 {
		maxWindow = lookback + 5
	}
	startIndex := lookback + 5
	if startIndex < 10 {
		startIndex = 10
	}

	states := make(map[string]*engine.TokenState, len(series))
	portfolios := make(map[string]*portfolio, len(series))
	tradesByPair := make(map[string][]Trade, len(series))
	for name := range series {
		states[name] = engine.NewTokenState()
		portfolios[name] = newPortfolio(capital)
	}

	entryReasonCounts := make(map[string]int)
	exitReasonCounts := make(map[string]int)
	rankedOutCounts := make(map[string]int)
	var allTrades []Trade

	maxLen := 0
	for _, candles := range series {
		if len(candles) > maxLen {
			maxLen = len(candles)
		}
	}

	for i := startIndex; i < maxLen; i++ {
		var candidates []*engine.Candidate
		for _, pairName := range pairNames {
			candles := series[pairName]
			if i >= len(candles) {
				continue
			}
			windowStart := i + 1 - maxWindow
			if windowStart < 0 {
				windowStart = 0
			}
			window := candles[windowStart : i+1]
			if len(window) < 5 {
				continue
			}

			pair := syntheticPair(pairName, pairName, window, cfg)
			state := states[pairName]
			state.AdvanceTime()
			snap := engine.BuildSnapshot(pair, window, cfg, i, nil)
			proposal := engine.ProposeAction(snap, state, cfg)
			candidates = append(candidates, &engine.Candidate{
				Pair:      pair,
				Symbol:    pairName,
				TokenMint: pairName,
				State:     state,
				Snapshot:  snap,
				Proposal:  proposal,
			})
		}

		rankEntriesStrict(candidates, cfg, rankedOutCounts)

		for _, c := range candidates {
			validated := engine.ValidateProposal(c.Proposal, c.Snapshot, c.State, cfg)
			if validated.Action == domain.ActionHold {
				continue
			}

			port := portfolios[c.TokenMint]
			trade, ok := settle(port, validated, c.Snapshot, c.State, cfg)
			if !ok {
				continue
			}
			tradesByPair[c.TokenMint] = append(tradesByPair[c.TokenMint], trade)
			allTrades = append(allTrades, trade)

			if validated.Action.IsEntry() {
				for _, reason := range validated.ReasonCodes {
					entryReasonCounts[reason]++
				}
			} else if validated.Action == domain.ActionExitFull {
				for _, reason := range validated.ReasonCodes {
					exitReasonCounts[reason]++
				}
			}

			c.State.ApplyAction(validated.Action, c.Snapshot, cfg, validated.ReasonCodes)
			c.State.PositionUSD = port.positionUSD()
		}
	}

	for _, pairName := range pairNames {
		port := portfolios[pairName]
		if trade, ok := forceExit(port, series[pairName], cfg); ok {
			tradesByPair[pairName] = append(tradesByPair[pairName], trade)
			allTrades = append(allTrades, trade)
			exitReasonCounts[domain.ReasonForcedExit]++
		}
	}

	perPair := make(map[string]Metrics, len(series))
	for _, pairName := range pairNames {
		trades := tradesByPair[pairName]
		perPair[pairName] = ComputeMetrics(capital, trades)
		if err := writeTradesCSV(filepath.Join(runDir, fmt.Sprintf("trades_%s.csv", pairName)), trades); err != nil {
			return nil, err
		}
	}

	summary := Summary{
		PairCount: len(perPair),
		Pairs:     perPair,
		Combined:  ComputeMetrics(capital*float64(len(perPair)), allTrades),
	}

	if err := tradelog.WriteJSON(filepath.Join(runDir, "summary.json"), summary); err != nil {
		return nil, err
	}
	if err := tradelog.WriteJSON(filepath.Join(runDir, "exit_reason_counts.json"), exitReasonCounts); err != nil {
		return nil, err
	}
	if err := tradelog.WriteJSON(filepath.Join(runDir, "entry_reason_counts.json"), entryReasonCounts); err != nil {
		return nil, err
	}
	if err := tradelog.WriteJSON(filepath.Join(runDir, "ranked_out_counts.json"), rankedOutCounts); err != nil {
		return nil, err
	}

	return &RunResult{RunDir: runDir, Summary: summary}, nil
}

// rankEntriesStrict mirrors the engine's top-N entry ranking but with
// the strict momentum score (zero on short windows) and a tally of
// what got ranked out.
func rankEntriesStrict(candidates []*engine.Candidate, cfg *config.Config, rankedOutCounts map[string]int) {
	before := make(map[*engine.Candidate]domain.Proposal, len(candidates))
	for _, c := range candidates {
		before[c] = c.Proposal
		if c.Proposal.Action == domain.ActionProbeBuy {
			c.SetScore(signals.MomentumScore(c.Snapshot.Candles, cfg.Rules.MomentumLookback))
		}
	}
	engine.RankEntries(candidates, cfg)
	for _, c := range candidates {
		if before[c].Action == domain.ActionProbeBuy && c.Proposal.Action == domain.ActionHold {
			rankedOutCounts[domain.ReasonRankedOut]++
		}
	}
}

func writeTradesCSV(path string, trades []Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"ts", "action", "price", "qty", "notional_usd", "pnl_usd", "return_pct", "reason_codes"}
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "write header %s", path)
	}
	for _, t := range trades {
		row := []string{
			strconv.FormatInt(t.TS, 10),
			t.Action.String(),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatFloat(t.Qty, 'f', -1, 64),
			strconv.FormatFloat(t.NotionalUSD, 'f', -1, 64),
			strconv.FormatFloat(t.PnLUSD, 'f', -1, 64),
			strconv.FormatFloat(t.ReturnPct, 'f', -1, 64),
			t.ReasonCodes,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "write row %s", path)
		}
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "flush %s", path)
}
