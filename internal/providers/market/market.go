// Package market supplies the candidate universe and candle history
// the engine ticks over. Implementations back onto an exchange API or
// onto the deterministic fixture universe used for calibration runs.
package market

import (
	"context"

	"github.com/memescout/memescout/internal/domain"
)

// Source serves tradeable candidates and their market data.
type Source interface {
	// Candidates lists the token universe for this run.
	Candidates(ctx context.Context) ([]domain.TokenRef, error)
	// Pair returns current pool stats for a pair.
	Pair(ctx context.Context, pairID string) (domain.PairStats, error)
	// OHLCV returns up to limit candles for the token, oldest first.
	OHLCV(ctx context.Context, tokenMint string, limit int) ([]domain.Candle, error)
}
