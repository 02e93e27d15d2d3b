package engine

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
	"github.com/memescout/memescout/internal/metrics"
	"github.com/memescout/memescout/internal/providers/chain"
	"github.com/memescout/memescout/internal/providers/market"
	"github.com/memescout/memescout/internal/providers/swap"
	"github.com/memescout/memescout/internal/signals"
	"github.com/memescout/memescout/internal/storage/tradelog"
)

// BaselineEntry annotates a decision with the token's velocity z-score
// context.
type BaselineEntry struct {
	Z         float64 `json:"z"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	WindowSec int     `json:"window_sec"`
	Scope     string  `json:"scope"`
}

// DecisionFeatures carries the feature context logged with a decision.
type DecisionFeatures struct {
	Market domain.FeatureSet     `json:"market"`
	Chain  *domain.ChainFeatures `json:"chain,omitempty"`
}

// DecisionRecord is one evaluated instrument-tick, validated decision
// included. Every record lands in decisions.jsonl.
type DecisionRecord struct {
	TS                   string                    `json:"ts"`
	Symbol               string                    `json:"symbol"`
	TokenMint            string                    `json:"token_mint"`
	PairID               string                    `json:"pair_id"`
	Score                float64                   `json:"score"`
	LastClose            float64                   `json:"last_close"`
	ScoreFeatureDiff     signals.MomentumDetail    `json:"score_feature_diff"`
	BreakoutStrict       bool                      `json:"breakout_strict"`
	RangeCompressed      bool                      `json:"range_compressed"`
	PriceExpanded        bool                      `json:"price_expanded"`
	ExpansionPct         float64                   `json:"expansion_pct"`
	ChainConfirmed       bool                      `json:"chain_confirmed"`
	ChainOverride        bool                      `json:"chain_override"`
	ProvisionalCandidate bool                      `json:"provisional_candidate"`
	Decision             domain.Action             `json:"decision"`
	Reasons              []string                  `json:"reasons"`
	Features             DecisionFeatures          `json:"features"`
	Baseline             map[string]*BaselineEntry `json:"baseline,omitempty"`
	BaselineNote         string                    `json:"baseline_note,omitempty"`
}

// QuotePreview is one priced-but-informational quote record.
type QuotePreview struct {
	TS          string        `json:"ts"`
	TokenIn     string        `json:"token_in"`
	TokenOut    string        `json:"token_out"`
	AmountIn    float64       `json:"amount_in"`
	AmountBase  int64         `json:"amount_base"`
	SlippageBps int           `json:"slippage_bps"`
	Quote       swap.Quote    `json:"quote"`
	Action      domain.Action `json:"action"`
	Symbol      string        `json:"symbol"`
	TokenMint   string        `json:"token_mint"`
}

// ExecutionPlan is one swap submission record.
type ExecutionPlan struct {
	TS              string        `json:"ts"`
	Action          domain.Action `json:"action"`
	TokenMint       string        `json:"token_mint"`
	Symbol          string        `json:"symbol"`
	Status          string        `json:"status"`
	Mode            string        `json:"mode"`
	Signature       string        `json:"signature,omitempty"`
	SwapTransaction string        `json:"swap_transaction,omitempty"`
}

// RunResult is what a completed engine run hands back.
type RunResult struct {
	Summary   RunSummary
	Decisions []DecisionRecord
	RunDir    string
}

// Engine drives the per-tick decision loop over the candidate
// universe.
type Engine struct {
	cfg     *config.Config
	log     *zap.Logger
	market  market.Source
	chain   chain.Intel
	swap    swap.Service
	metrics *metrics.Set

	logDir     string
	marketMode string
	chainMode  string
	sleep      bool

	states   map[string]*TokenState
	cursors  map[string]int
	baseline *VelocityBaseline
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithChainIntel attaches an on-chain intelligence provider.
func WithChainIntel(intel chain.Intel) EngineOption {
	return func(e *Engine) { e.chain = intel }
}

// WithSwapService attaches a swap execution service.
func WithSwapService(svc swap.Service) EngineOption {
	return func(e *Engine) { e.swap = svc }
}

// WithMetrics attaches a Prometheus instrument set.
func WithMetrics(set *metrics.Set) EngineOption {
	return func(e *Engine) { e.metrics = set }
}

// WithLogDir overrides the run artifact directory.
func WithLogDir(dir string) EngineOption {
	return func(e *Engine) { e.logDir = dir }
}

// WithProviderModes labels the run summary's provider modes.
func WithProviderModes(marketMode, chainMode string) EngineOption {
	return func(e *Engine) {
		e.marketMode = marketMode
		e.chainMode = chainMode
	}
}

// WithSleep makes Run pause poll_interval_sec between ticks.
func WithSleep() EngineOption {
	return func(e *Engine) { e.sleep = true }
}

// NewEngine builds an engine over the market source.
func NewEngine(cfg *config.Config, log *zap.Logger, source market.Source, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:        cfg,
		log:        log,
		market:     source,
		marketMode: "fixture",
		chainMode:  "fixture",
		states:     make(map[string]*TokenState),
		cursors:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// fetched is one candidate's per-tick provider data.
type fetched struct {
	ref     domain.TokenRef
	pair    domain.PairStats
	candles []domain.Candle
	chain   *domain.ChainFeatures
	err     error
}

func intervalToSeconds(interval string) int64 {
	mapping := map[string]int64{
		"1s": 1, "15s": 15, "30s": 30,
		"1m": 60, "3m": 180, "5m": 300, "15m": 900, "30m": 1800,
		"1H": 3600, "2H": 7200, "4H": 14400, "6H": 21600, "8H": 28800, "12H": 43200,
		"1D": 86400, "3D": 259200, "1W": 604800, "1M": 2592000,
	}
	if sec, ok := mapping[interval]; ok {
		return sec
	}
	return 60
}

// Run executes the decision loop for the given number of iterations
// and writes all run artifacts. A zero iterations falls back to the
// configured default.
func (e *Engine) Run(ctx context.Context, iterations int) (*RunResult, error) {
	if iterations <= 0 {
		iterations = e.cfg.Engine.Iterations
	}

	journal, err := tradelog.NewJournal(e.logDir)
	if err != nil {
		return nil, err
	}
	defer journal.Close()

	candidates, err := e.market.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	if maxTokens := e.cfg.Engine.MaxTokens; maxTokens > 0 && len(candidates) > maxTokens {
		candidates = candidates[:maxTokens]
	}
	universeSize := len(candidates)

	lookback := e.cfg.Rules.BreakoutLookback
	startIndex := lookback + 5
	if startIndex < 10 {
		startIndex = 10
	}
	intervalSec := intervalToSeconds(e.cfg.Market.Interval)
	baselineWindowSec := e.cfg.Chain.BaselineWindowSec
	baselineWindowBars := baselineWindowSec / int(intervalSec)
	if baselineWindowBars < 1 {
		baselineWindowBars = 1
	}
	e.baseline = NewVelocityBaseline(baselineWindowBars)

	filteredCounts := make(map[string]int)
	proposalReasonCounts := make(map[string]int)
	var decisionRecords []DecisionRecord
	var lastDecisions []DecisionRecord
	var lastRanked []RankedEntry
	var quotePreviews []any
	var executionPlans []any

	for iter := 0; iter < iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.metrics != nil {
			e.metrics.Ticks.Inc()
		}

		batch := e.fetchTick(ctx, candidates)

		var ticked []*Candidate
		for _, f := range batch {
			if f.err != nil {
				filteredCounts["fetch_error"]++
				e.log.Warn("candidate fetch failed",
					zap.String("token_mint", f.ref.TokenMint), zap.Error(f.err))
				continue
			}
			if f.ref.PairID == "" {
				filteredCounts["missing_pair_id"]++
				continue
			}
			if f.ref.TokenMint == "" {
				filteredCounts["missing_token_mint"]++
				continue
			}
			if len(f.candles) == 0 {
				filteredCounts["no_candles"]++
				continue
			}

			cursor, ok := e.cursors[f.ref.TokenMint]
			if !ok {
				if len(f.candles) < startIndex {
					minStart := lookback + 2
					if minStart < 2 {
						minStart = 2
					}
					cursor = min(len(f.candles), minStart)
				} else {
					cursor = startIndex
				}
			}
			if cursor < len(f.candles) {
				cursor++
			}
			if cursor > len(f.candles) {
				cursor = len(f.candles)
			}
			e.cursors[f.ref.TokenMint] = cursor

			window := f.candles[:cursor]
			if len(window) < 5 {
				filteredCounts["insufficient_candles"]++
				continue
			}

			state, ok := e.states[f.ref.TokenMint]
			if !ok {
				state = NewTokenState()
				e.states[f.ref.TokenMint] = state
			}
			state.AdvanceTime()

			snap := BuildSnapshot(f.pair, window, e.cfg, cursor-1, signals.TrendOverlay(window))
			ApplyChainOverrideFlags(snap, f.chain, e.cfg)
			proposal := ProposeAction(snap, state, e.cfg)

			ticked = append(ticked, &Candidate{
				Pair:      f.pair,
				Symbol:    f.ref.Symbol,
				TokenMint: f.ref.TokenMint,
				State:     state,
				Snapshot:  snap,
				Chain:     f.chain,
				Proposal:  proposal,
			})
		}

		RankEntries(ticked, e.cfg)
		lastRanked = BuildRankedSummary(ticked, e.cfg)

		var iterationDecisions []DecisionRecord
		for _, c := range ticked {
			validated := ValidateProposal(c.Proposal, c.Snapshot, c.State, e.cfg)
			validated = ApplyChainRisk(validated, c.Chain)
			for _, reason := range validated.ReasonCodes {
				proposalReasonCounts[reason]++
				if e.metrics != nil && strings.HasPrefix(reason, "REJECT_") {
					e.metrics.Rejects.WithLabelValues(reason).Inc()
				}
			}

			record := e.buildDecisionRecord(c, validated, baselineWindowSec)
			iterationDecisions = append(iterationDecisions, record)

			if validated.Action != domain.ActionHold {
				if err := e.execute(ctx, c, validated, journal, &quotePreviews, &executionPlans); err != nil {
					e.log.Error("execution failed",
						zap.String("token_mint", c.TokenMint),
						zap.Stringer("action", validated.Action),
						zap.Error(err))
					continue
				}
				if e.metrics != nil {
					e.metrics.Decisions.WithLabelValues(validated.Action.String()).Inc()
				}
				c.State.ApplyAction(validated.Action, c.Snapshot, e.cfg, validated.ReasonCodes)
			}
		}

		decisionRecords = append(decisionRecords, iterationDecisions...)
		lastDecisions = iterationDecisions

		if e.sleep {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(e.cfg.Engine.PollIntervalSec) * time.Second):
			}
		}
	}

	candidateRejectCounts := rejectCountsOf(lastDecisions)
	candidateReasonCounts := reasonCountsOf(lastDecisions)

	runDir := journal.RunDir()
	summary := buildRunSummary(summaryInputs{
		runID:                 filepath.Base(runDir),
		providerModes:         map[string]string{"market": e.marketMode, "chain": e.chainMode},
		universeSize:          universeSize,
		candidateCount:        len(lastDecisions),
		filteredCounts:        filteredCounts,
		actionCounts:          journal.ActionCounts(),
		proposalReasonCounts:  proposalReasonCounts,
		candidateReasonCounts: candidateReasonCounts,
		candidateRejectCounts: candidateRejectCounts,
		rankedEntries:         lastRanked,
	})

	decisionRows := make([]any, 0, len(decisionRecords))
	for _, rec := range decisionRecords {
		decisionRows = append(decisionRows, rec)
	}
	if err := tradelog.WriteJSONL(filepath.Join(runDir, "decisions.jsonl"), decisionRows); err != nil {
		return nil, err
	}
	if err := tradelog.WriteJSON(filepath.Join(runDir, "run_summary.json"), summary); err != nil {
		return nil, err
	}
	if e.swap != nil {
		if err := tradelog.WriteJSONL(filepath.Join(runDir, "quote_previews.jsonl"), quotePreviews); err != nil {
			return nil, err
		}
		if err := tradelog.WriteJSONL(filepath.Join(runDir, "execution_plans.jsonl"), executionPlans); err != nil {
			return nil, err
		}
	}

	fmt.Println(journal.Summarize())
	fmt.Println(FormatRunFooter(summary.CandidateCount, summary.ActionCounts, candidateRejectCounts))

	return &RunResult{Summary: summary, Decisions: decisionRecords, RunDir: runDir}, nil
}

// fetchTick pulls pair stats, candle history and chain features for
// every candidate concurrently, preserving candidate order.
func (e *Engine) fetchTick(ctx context.Context, candidates []domain.TokenRef) []fetched {
	batch := make([]fetched, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, ref := range candidates {
		g.Go(func() error {
			f := fetched{ref: ref}
			defer func() { batch[i] = f }()

			if ref.PairID == "" || ref.TokenMint == "" {
				return nil
			}

			pair, err := e.market.Pair(gctx, ref.PairID)
			if err != nil {
				f.err = err
				return nil
			}
			f.pair = pair

			candles, err := e.market.OHLCV(gctx, ref.TokenMint, e.cfg.Market.Limit)
			if err != nil {
				f.err = err
				return nil
			}
			f.candles = candles

			if e.chain != nil && e.cfg.Chain.Enabled {
				txs, err := e.chain.EnhancedTxsByAddress(gctx, ref.TokenMint, e.cfg.Chain.TxLimit)
				if err != nil {
					e.log.Debug("chain intel unavailable",
						zap.String("token_mint", ref.TokenMint), zap.Error(err))
				} else {
					f.chain = chain.ComputeFeatures(txs, ref.TokenMint, ref.TokenMint)
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return batch
}

func (e *Engine) buildDecisionRecord(c *Candidate, validated domain.Proposal, baselineWindowSec int) DecisionRecord {
	detail := signals.Momentum(c.Snapshot.Candles, e.cfg.Rules.MomentumLookback)
	adjustments := ScoreAdjustmentComponents(c.Snapshot.Features, e.cfg)
	if len(adjustments) > 0 {
		detail.Components = append(detail.Components, adjustments...)
		signals.SortComponentsByImpact(detail.Components)
		detail.TopFeatures = detail.TopFeatures[:0]
		for _, comp := range detail.Components[:min(2, len(detail.Components))] {
			detail.TopFeatures = append(detail.TopFeatures, comp.Feature)
		}
	}
	detail.Total = AdjustedScore(detail.Total, adjustments)

	symbol := c.Symbol
	if symbol == "" {
		symbol = c.TokenMint
	}

	f := c.Snapshot.Features
	record := DecisionRecord{
		TS:                   time.Now().UTC().Format(time.RFC3339),
		Symbol:               symbol,
		TokenMint:            c.TokenMint,
		PairID:               c.Pair.PairID,
		Score:                detail.Total,
		LastClose:            c.Snapshot.LastClose,
		ScoreFeatureDiff:     detail,
		BreakoutStrict:       f.BreakoutStrict,
		RangeCompressed:      f.RangeCompressed,
		PriceExpanded:        f.PriceExpanded,
		ExpansionPct:         f.ExpansionPct,
		ChainConfirmed:       f.ChainConfirmed,
		ChainOverride:        f.ChainOverride,
		ProvisionalCandidate: f.ProvisionalCandidate,
		Decision:             validated.Action,
		Reasons:              validated.ReasonCodes,
		Features:             DecisionFeatures{Market: f, Chain: c.Chain},
	}

	if c.Chain != nil {
		if stats := e.baseline.Observe(c.TokenMint, c.Chain.VelocityPerMin); stats != nil {
			record.Baseline = map[string]*BaselineEntry{
				"chain_tx_velocity_per_min": {
					Z:         stats.Z,
					Mean:      stats.Mean,
					Std:       stats.Std,
					WindowSec: baselineWindowSec,
					Scope:     "rolling_token",
				},
			}
			record.BaselineNote = fmt.Sprintf("chain_tx_velocity_per_min %+.2f sigma vs last_24h", stats.Z)
		}
	}

	return record
}

// execute quotes and submits the validated action, then journals it.
func (e *Engine) execute(
	ctx context.Context,
	c *Candidate,
	validated domain.Proposal,
	journal *tradelog.Journal,
	quotePreviews *[]any,
	executionPlans *[]any,
) error {
	notionalUSD := ActionNotionalUSD(validated.Action, c.State, e.cfg)

	var tokenIn, tokenOut string
	var amountIn float64
	if validated.Action.IsEntry() {
		tokenIn, tokenOut = "USDC", c.TokenMint
		amountIn = notionalUSD
	} else {
		tokenIn, tokenOut = c.TokenMint, "USDC"
		amountIn = notionalUSD / math.Max(c.Snapshot.LastClose, 1e-9)
	}

	entry := tradelog.Entry{
		TS:          c.Snapshot.NowTS,
		PairID:      c.Pair.PairID,
		TokenMint:   c.Pair.TokenMint,
		Action:      validated.Action,
		PriceUSD:    c.Snapshot.LastClose,
		ReasonCodes: validated.ReasonCodes,
		State:       c.State.Status.String(),
		NotionalUSD: notionalUSD,
	}

	if e.swap != nil {
		amountBase := amountToBaseUnits(amountIn, 6)
		quote, err := e.swap.GetQuote(ctx, swap.QuoteParams{
			InputMint:   tokenIn,
			OutputMint:  tokenOut,
			Amount:      amountBase,
			SlippageBps: e.cfg.Risk.MaxSlippageBps,
		})
		if err != nil {
			return err
		}
		*quotePreviews = append(*quotePreviews, QuotePreview{
			TS:          time.Now().UTC().Format(time.RFC3339),
			TokenIn:     tokenIn,
			TokenOut:    tokenOut,
			AmountIn:    amountIn,
			AmountBase:  amountBase,
			SlippageBps: e.cfg.Risk.MaxSlippageBps,
			Quote:       quote,
			Action:      validated.Action,
			Symbol:      c.Symbol,
			TokenMint:   c.TokenMint,
		})

		result, err := e.swap.ExecuteSwap(ctx, quote, "FAKE_USER_PUBKEY", swap.DefaultOptions())
		if err != nil {
			return err
		}
		*executionPlans = append(*executionPlans, ExecutionPlan{
			TS:              time.Now().UTC().Format(time.RFC3339),
			Action:          validated.Action,
			TokenMint:       c.TokenMint,
			Symbol:          c.Symbol,
			Status:          result.Status,
			Mode:            result.Mode,
			Signature:       result.Signature,
			SwapTransaction: result.SwapTransaction,
		})

		entry.Quote = quote
		entry.Swap = map[string]string{
			"swap_transaction": result.SwapTransaction,
			"signature":        result.Signature,
			"status":           result.Status,
			"mode":             result.Mode,
		}
		entry.Execution = map[string]string{
			"status":    result.Status,
			"mode":      result.Mode,
			"signature": result.Signature,
		}
	}

	return journal.Append(entry)
}

func amountToBaseUnits(amount float64, decimals int) int64 {
	base := int64(math.Round(amount * math.Pow10(decimals)))
	if base < 1 {
		base = 1
	}
	return base
}

func rejectCountsOf(decisions []DecisionRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range decisions {
		if rec.Decision != domain.ActionHold {
			continue
		}
		for _, reason := range uniqueStrings(rec.Reasons) {
			counts[reason]++
		}
	}
	return counts
}

func reasonCountsOf(decisions []DecisionRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range decisions {
		for _, reason := range uniqueStrings(rec.Reasons) {
			counts[reason]++
		}
	}
	return counts
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
