// Package config loads engine configuration from a YAML file plus an
// optional .env. The Config value is constructed once at startup and
// passed explicitly through the pipeline; there is no package-level
// cache.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Market      MarketConfig      `yaml:"market"`
	Chain       ChainConfig       `yaml:"chain"`
	Rules       RulesConfig       `yaml:"rules"`
	Breakout    BreakoutConfig    `yaml:"breakout"`
	Reentry     ReentryConfig     `yaml:"reentry"`
	Stops       StopsConfig       `yaml:"stops"`
	Risk        RiskConfig        `yaml:"risk"`
	Positioning PositioningConfig `yaml:"positioning"`
	Costs       CostsConfig       `yaml:"costs"`
	Backtest    BacktestConfig    `yaml:"backtest"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type EngineConfig struct {
	PollIntervalSec int `yaml:"poll_interval_sec"`
	CooldownCandles int `yaml:"cooldown_candles"`
	Iterations      int `yaml:"iterations"`
	MaxTokens       int `yaml:"max_tokens"`
}

type MarketConfig struct {
	Interval string `yaml:"interval"`
	Limit    int    `yaml:"limit"`
}

type ChainConfig struct {
	Enabled           bool `yaml:"enabled"`
	TxLimit           int  `yaml:"tx_limit"`
	BaselineWindowSec int  `yaml:"baseline_window_sec"`
}

type ProgressConfig struct {
	MinMovePct             float64 `yaml:"min_move_pct"`
	MaxWaitCandles         int     `yaml:"max_wait_candles"`
	BreakevenAfterProgress bool    `yaml:"breakeven_after_progress"`
	TrailAfterProgress     bool    `yaml:"trail_after_progress"`
	TrailLookbackLows      int     `yaml:"trail_lookback_lows"`
}

type RulesConfig struct {
	BreakoutLookback        int            `yaml:"breakout_lookback"`
	MomentumLookback        int            `yaml:"momentum_lookback"`
	ConfirmMinCloseAbovePct float64        `yaml:"confirm_min_close_above_pct"`
	ConfirmMaxRetracePct    float64        `yaml:"confirm_max_retrace_pct"`
	AddTriggerUpPct         float64        `yaml:"add_trigger_up_pct"`
	TimeStopCandles         int            `yaml:"time_stop_candles"`
	TopNPerTick             int            `yaml:"top_n_per_tick"`
	MinCandidatesBeforeRank int            `yaml:"min_candidates_before_rank"`
	Progress                ProgressConfig `yaml:"progress"`
}

type BreakoutConfig struct {
	CompressionMaxRangeRatio float64 `yaml:"compression_max_range_ratio"`
	CompressionLookbackBars  int     `yaml:"compression_lookback_bars"`
	ExpansionMinPct          float64 `yaml:"expansion_min_pct"`
	ExpansionReference       string  `yaml:"expansion_reference"`

	ChainOverrideEnabled           bool    `yaml:"chain_override_enabled"`
	ChainOverrideMinTxVelocity     float64 `yaml:"chain_override_min_tx_velocity_per_min"`
	ChainOverrideMinSwapCount      float64 `yaml:"chain_override_min_swap_count"`
	ChainOverrideMinNetNative      float64 `yaml:"chain_override_min_net_native"`
	ChainOverrideMinLiquidityEvts  float64 `yaml:"chain_override_min_liquidity_events"`
	ChainOverrideScoreBonus        float64 `yaml:"chain_override_score_bonus"`
	WeakBreakoutScorePenalty       float64 `yaml:"weak_breakout_score_penalty"`
}

type ReentryConfig struct {
	LockoutCandles int     `yaml:"lockout_candles"`
	MinBreakoutPct float64 `yaml:"min_breakout_pct"`
	VolMultUnlock  float64 `yaml:"vol_mult_unlock"`
	CandleSeconds  int     `yaml:"candle_seconds"`
}

type StopsConfig struct {
	StopBufferPct float64 `yaml:"stop_buffer_pct"`
}

type RiskConfig struct {
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MaxSlippageBps  int     `yaml:"max_slippage_bps"`
}

type PositioningConfig struct {
	CapitalUSD     float64 `yaml:"capital_usd"`
	ProbePct       float64 `yaml:"probe_pct"`
	AddPct         float64 `yaml:"add_pct"`
	TP1ScaleOutPct float64 `yaml:"tp1_scale_out_pct"`
	TP2ScaleOutPct float64 `yaml:"tp2_scale_out_pct"`
}

type CostsConfig struct {
	FeeBpsPerSide float64 `yaml:"fee_bps_per_side"`
	SlippageBps   float64 `yaml:"slippage_bps"`
}

type BacktestConfig struct {
	MaxWindowCandles  int `yaml:"max_window_candles"`
	MaxCandlesPerPair int `yaml:"max_candles_per_pair"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the engine defaults used when no YAML file overrides
// them. Values mirror the calibration the fixture universe was tuned
// against.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			PollIntervalSec: 1,
			CooldownCandles: 10,
			Iterations:      240,
			MaxTokens:       0,
		},
		Market: MarketConfig{Interval: "1m", Limit: 300},
		Chain:  ChainConfig{Enabled: true, TxLimit: 25, BaselineWindowSec: 86400},
		Rules: RulesConfig{
			BreakoutLookback:        20,
			MomentumLookback:        20,
			ConfirmMinCloseAbovePct: 0.01,
			ConfirmMaxRetracePct:    0.05,
			AddTriggerUpPct:         0.05,
			TimeStopCandles:         30,
			TopNPerTick:             3,
			MinCandidatesBeforeRank: 2,
			Progress: ProgressConfig{
				MinMovePct:             0.08,
				MaxWaitCandles:         10,
				BreakevenAfterProgress: true,
				TrailAfterProgress:     true,
				TrailLookbackLows:      3,
			},
		},
		Breakout: BreakoutConfig{
			CompressionMaxRangeRatio:      1.25,
			CompressionLookbackBars:       0,
			ExpansionMinPct:               0.06,
			ExpansionReference:            "highest_close",
			ChainOverrideEnabled:          true,
			ChainOverrideMinTxVelocity:    5,
			ChainOverrideMinSwapCount:     10,
			ChainOverrideMinNetNative:     0,
			ChainOverrideMinLiquidityEvts: 0,
			ChainOverrideScoreBonus:       5,
			WeakBreakoutScorePenalty:      3,
		},
		Reentry: ReentryConfig{
			LockoutCandles: 10,
			MinBreakoutPct: 0.05,
			VolMultUnlock:  3,
			CandleSeconds:  60,
		},
		Stops: StopsConfig{StopBufferPct: 0.02},
		Risk:  RiskConfig{MinLiquidityUSD: 50000, MaxSlippageBps: 250},
		Positioning: PositioningConfig{
			CapitalUSD:     1000,
			ProbePct:       0.10,
			AddPct:         0.15,
			TP1ScaleOutPct: 0.20,
			TP2ScaleOutPct: 0.20,
		},
		Costs:    CostsConfig{FeeBpsPerSide: 10, SlippageBps: 15},
		Backtest: BacktestConfig{MaxWindowCandles: 200, MaxCandlesPerPair: 1000},
		Metrics:  MetricsConfig{ListenAddr: ""},
	}
}

// Load reads the config at path on top of the defaults. An empty path
// returns the defaults. A .env next to the working directory is loaded
// first so yaml values may reference credentials via the environment.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, errors.Wrap(err, "load .env")
		}
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Rules.BreakoutLookback <= 0 {
		return errors.New("rules.breakout_lookback must be positive")
	}
	if c.Rules.MomentumLookback <= 0 {
		return errors.New("rules.momentum_lookback must be positive")
	}
	if c.Positioning.CapitalUSD <= 0 {
		return errors.New("positioning.capital_usd must be positive")
	}
	if c.Positioning.ProbePct < 0 || c.Positioning.ProbePct > 1 {
		return errors.New("positioning.probe_pct must be within [0,1]")
	}
	if c.Positioning.AddPct < 0 || c.Positioning.AddPct > 1 {
		return errors.New("positioning.add_pct must be within [0,1]")
	}
	if c.Risk.MaxSlippageBps < 0 {
		return errors.New("risk.max_slippage_bps must not be negative")
	}
	if c.Breakout.CompressionMaxRangeRatio < 1 {
		return errors.New("breakout.compression_max_range_ratio must be >= 1")
	}
	return nil
}

// CompressionLookback resolves the compression window length, falling
// back to the breakout lookback when unset.
func (c *Config) CompressionLookback() int {
	if c.Breakout.CompressionLookbackBars > 0 {
		return c.Breakout.CompressionLookbackBars
	}
	return c.Rules.BreakoutLookback
}
