package backtest

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/memescout/memescout/internal/domain"
)

// candleAliases maps canonical candle fields to the column names seen
// across exported datasets.
var candleAliases = map[string][]string{
	"t": {"t", "timestamp", "time", "ts"},
	"o": {"o", "open"},
	"h": {"h", "high"},
	"l": {"l", "low"},
	"c": {"c", "close"},
	"v": {"v", "volume"},
}

func firstAlias(row map[string]any, aliases []string) (any, bool) {
	for _, key := range aliases {
		if value, ok := row[key]; ok {
			return value, true
		}
	}
	return nil, false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func normalizeMap(row map[string]any) (domain.Candle, bool) {
	var candle domain.Candle
	fields := []struct {
		key string
		dst *float64
	}{
		{"o", &candle.O}, {"h", &candle.H}, {"l", &candle.L}, {"c", &candle.C}, {"v", &candle.V},
	}

	raw, ok := firstAlias(row, candleAliases["t"])
	if !ok {
		return domain.Candle{}, false
	}
	t, ok := toFloat(raw)
	if !ok {
		return domain.Candle{}, false
	}
	candle.T = int64(t)

	for _, f := range fields {
		raw, ok := firstAlias(row, candleAliases[f.key])
		if !ok {
			return domain.Candle{}, false
		}
		value, ok := toFloat(raw)
		if !ok {
			return domain.Candle{}, false
		}
		*f.dst = value
	}
	return candle, true
}

func normalizeSequence(values []any) (domain.Candle, bool) {
	if len(values) < 6 {
		return domain.Candle{}, false
	}
	nums := make([]float64, 6)
	for i := 0; i < 6; i++ {
		value, ok := toFloat(values[i])
		if !ok {
			return domain.Candle{}, false
		}
		nums[i] = value
	}
	return domain.Candle{
		T: int64(nums[0]), O: nums[1], H: nums[2], L: nums[3], C: nums[4], V: nums[5],
	}, true
}

func normalizeAny(row any) (domain.Candle, bool) {
	switch v := row.(type) {
	case map[string]any:
		return normalizeMap(v)
	case []any:
		return normalizeSequence(v)
	default:
		return domain.Candle{}, false
	}
}

// candlesFromRow expands one decoded row: rows wrapping a list under
// candles/data/ohlcv yield the whole list, anything else yields at
// most one candle.
func candlesFromRow(row any) []domain.Candle {
	if m, ok := row.(map[string]any); ok {
		for _, key := range []string{"candles", "data", "ohlcv"} {
			if nested, ok := m[key].([]any); ok {
				var out []domain.Candle
				for _, item := range nested {
					if candle, ok := normalizeAny(item); ok {
						out = append(out, candle)
					}
				}
				return out
			}
		}
	}
	if candle, ok := normalizeAny(row); ok {
		return []domain.Candle{candle}
	}
	return nil
}

// LoadCandlesJSONL reads newline-delimited JSON, transparently
// gunzipping *.gz. Unparseable lines are skipped.
func LoadCandlesJSONL(path string, maxRows int) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "gunzip %s", path)
		}
		defer gz.Close()
		reader = gz
	}

	var candles []domain.Candle
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}
		batch := candlesFromRow(row)
		if maxRows > 0 {
			remaining := maxRows - len(candles)
			if remaining <= 0 {
				break
			}
			if len(batch) > remaining {
				batch = batch[:remaining]
			}
		}
		candles = append(candles, batch...)
		if maxRows > 0 && len(candles) >= maxRows {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return candles, nil
}

// LoadCandlesJSON reads a JSON array or single object; files that are
// secretly JSONL fall through to the line loader.
func LoadCandlesJSON(path string, maxRows int) ([]domain.Candle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return LoadCandlesJSONL(path, maxRows)
	}

	rows, ok := decoded.([]any)
	if !ok {
		rows = []any{decoded}
	}
	var candles []domain.Candle
	for _, row := range rows {
		candles = append(candles, candlesFromRow(row)...)
	}
	if maxRows > 0 && len(candles) > maxRows {
		candles = candles[:maxRows]
	}
	return candles, nil
}

// LoadCandlesCSV reads CSV with either an aliased header row or bare
// positional t,o,h,l,c,v rows.
func LoadCandlesCSV(path string, maxRows int) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var candles []domain.Candle
	if _, err := strconv.ParseFloat(strings.TrimSpace(records[0][0]), 64); err == nil {
		// Headerless: positional columns.
		for _, record := range records {
			values := make([]any, len(record))
			for i, field := range record {
				values[i] = field
			}
			if candle, ok := normalizeSequence(values); ok {
				candles = append(candles, candle)
			}
		}
	} else {
		header := records[0]
		for _, record := range records[1:] {
			row := make(map[string]any, len(header))
			for i, name := range header {
				if i < len(record) {
					row[strings.TrimSpace(name)] = record[i]
				}
			}
			if candle, ok := normalizeMap(row); ok {
				candles = append(candles, candle)
			}
		}
	}

	if maxRows > 0 && len(candles) > maxRows {
		candles = candles[:maxRows]
	}
	return candles, nil
}

// LoadCandles dispatches on the file extension. Unknown extensions
// yield an empty set.
func LoadCandles(path string, maxRows int) ([]domain.Candle, error) {
	name := filepath.Base(path)
	switch {
	case strings.HasSuffix(name, ".jsonl.gz") || strings.HasSuffix(name, ".jsonl"):
		return LoadCandlesJSONL(path, maxRows)
	case strings.HasSuffix(name, ".json"):
		return LoadCandlesJSON(path, maxRows)
	case strings.HasSuffix(name, ".csv"):
		return LoadCandlesCSV(path, maxRows)
	default:
		return nil, nil
	}
}

func isDataFile(name string) bool {
	for _, suffix := range []string{".jsonl", ".jsonl.gz", ".json", ".csv"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// FindDataFiles walks dataDir for supported candle files, up to limit,
// sorted for deterministic pair ordering.
func FindDataFiles(dataDir string, limit int) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDataFile(d.Name()) {
			return nil
		}
		matches = append(matches, path)
		if limit > 0 && len(matches) >= limit {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", dataDir)
	}
	sort.Strings(matches)
	return matches, nil
}

// PairNameFromPath strips every extension from the file name, so
// SOL_USDC.jsonl.gz becomes SOL_USDC.
func PairNameFromPath(path string) string {
	name := filepath.Base(path)
	for {
		ext := filepath.Ext(name)
		if ext == "" {
			return name
		}
		name = strings.TrimSuffix(name, ext)
	}
}
