package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/domain"
	"github.com/memescout/memescout/internal/providers/chain"
	"github.com/memescout/memescout/internal/providers/market"
)

func TestEngineRunFixtureUniverse(t *testing.T) {
	cfg := config.Default()
	eng := NewEngine(cfg, zap.NewNop(),
		market.NewFixtureSource(market.DefaultFixtureParams()),
		WithChainIntel(chain.NewFixtureIntel()),
		WithLogDir(t.TempDir()),
	)

	result, err := eng.Run(context.Background(), 30)
	require.NoError(t, err)
	require.NotNil(t, result)

	// 10 synthetic tokens plus 3 calibration scenarios.
	assert.Equal(t, 13, result.Summary.UniverseSize)
	assert.Equal(t, 13, result.Summary.CandidateCount)
	assert.NotEmpty(t, result.Decisions)

	// The clean runner enters via the chain override on its first tick.
	var winEntered bool
	for _, rec := range result.Decisions {
		if rec.TokenMint == "MINT_WIN_PERFECT" && rec.Decision == domain.ActionProbeBuy {
			winEntered = true
			assert.Contains(t, rec.Reasons, domain.ReasonProvisionalChainEntry)
			assert.True(t, rec.ChainOverride)
			break
		}
	}
	assert.True(t, winEntered, "expected MINT_WIN_PERFECT to enter")

	// The headfake never trades: no candle breakout, chain activity
	// below the override thresholds and toxic flow behind it.
	for _, rec := range result.Decisions {
		if rec.TokenMint == "MINT_FAKE_HEADFAKE" {
			assert.Equal(t, domain.ActionHold, rec.Decision)
		}
	}

	assert.GreaterOrEqual(t, result.Summary.ActionCounts["PROBE_BUY"], 1)
	assert.Contains(t, result.Summary.OverrideCounts, "PROVISIONAL_CHAIN_OVERRIDE")

	for _, name := range []string{"decisions.jsonl", "run_summary.json", "trades.jsonl"} {
		_, err := os.Stat(filepath.Join(result.RunDir, name))
		assert.NoError(t, err, name)
	}
}

func TestEngineRunRespectsContext(t *testing.T) {
	cfg := config.Default()
	eng := NewEngine(cfg, zap.NewNop(),
		market.NewFixtureSource(market.DefaultFixtureParams()),
		WithLogDir(t.TempDir()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Run(ctx, 5)
	assert.Error(t, err)
}

func TestFormatRunFooter(t *testing.T) {
	footer := FormatRunFooter(10, map[string]int{"PROBE_BUY": 2},
		map[string]int{"REJECT_LOW_LIQUIDITY": 5})
	assert.Equal(t, "10 candidates | 2 trades | top reject: REJECT_LOW_LIQUIDITY (50%)", footer)

	footer = FormatRunFooter(0, nil, nil)
	assert.Equal(t, "0 candidates | 0 trades | top reject: none", footer)
}

func TestTopCounts(t *testing.T) {
	counts := map[string]int{"A": 2, "B": 5, "C": 2}
	top := topCounts(counts, 2)
	require.Len(t, top, 2)
	assert.Equal(t, ReasonCount{Reason: "B", Count: 5}, top[0])
	assert.Equal(t, ReasonCount{Reason: "A", Count: 2}, top[1])
}
