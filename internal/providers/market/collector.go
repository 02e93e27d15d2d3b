package market

import (
	"context"
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"

	"github.com/memescout/memescout/pkg/retrier"
)

// HistoryCollector downloads historical klines from Binance and writes
// them as t,o,h,l,c,v CSV files the backtest loader understands. Used
// to build offline datasets for replay.
type HistoryCollector struct {
	client *binance.Client
	retry  *retrier.Retrier
}

// NewHistoryCollector builds a collector from BINANCE_API_KEY and
// BINANCE_API_SECRET.
func NewHistoryCollector() (*HistoryCollector, error) {
	apiKey := os.Getenv("BINANCE_API_KEY")
	if apiKey == "" {
		return nil, errors.New("BINANCE_API_KEY env is not set")
	}
	secretKey := os.Getenv("BINANCE_API_SECRET")
	if secretKey == "" {
		return nil, errors.New("BINANCE_API_SECRET env is not set")
	}

	return &HistoryCollector{
		client: binance.NewClient(apiKey, secretKey),
		retry:  retrier.New(retrier.WithMaxAttempts(4), retrier.WithInitialInterval(500*time.Millisecond)),
	}, nil
}

// Collect fetches klines for the symbol across [fromHoursAgo,
// toHoursAgo] at the given interval and appends them to filePath.
func (hc *HistoryCollector) Collect(ctx context.Context, symbol, interval string, fromHoursAgo, toHoursAgo int, filePath string) error {
	startTime := time.Now().Add(-time.Duration(fromHoursAgo)*time.Hour).Unix() * 1000
	endTime := time.Now().Add(-time.Duration(toHoursAgo)*time.Hour).Unix() * 1000

	klines, err := retrier.DoWithData(hc.retry, ctx, func(ctx context.Context) ([]*binance.Kline, error) {
		return hc.client.NewKlinesService().
			Symbol(symbol).
			StartTime(startTime).
			EndTime(endTime).
			Interval(interval).
			Do(ctx)
	})
	if err != nil {
		return errors.Wrapf(err, "fetch klines for %s", symbol)
	}

	sort.Slice(klines, func(i, j int) bool {
		return klines[i].OpenTime < klines[j].OpenTime
	})

	rows := make([][]string, 0, len(klines))
	for _, k := range klines {
		rows = append(rows, []string{
			strconv.FormatInt(k.OpenTime/1000, 10),
			k.Open,
			k.High,
			k.Low,
			k.Close,
			k.Volume,
		})
	}

	return writeCandlesCSV(filePath, rows)
}

func writeCandlesCSV(filePath string, rows [][]string) error {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "open %s", filePath)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", filePath)
	}
	return nil
}
