// Package tradelog persists executed trade entries for a run: a
// WAL-backed journal for durability plus JSONL/JSON exports under a
// per-run directory.
package tradelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/memescout/memescout/internal/domain"
)

const (
	segmentLimit   = 1000
	maxSegments    = 20
	tradeKeyPrefix = "trade_"
)

// Entry is one executed action.
type Entry struct {
	TS          int64          `json:"ts"`
	PairID      string         `json:"pair_id"`
	TokenMint   string         `json:"token_mint"`
	Action      domain.Action  `json:"action"`
	PriceUSD    float64        `json:"price_usd"`
	ReasonCodes []string       `json:"reason_codes"`
	State       string         `json:"state"`
	NotionalUSD float64        `json:"notional_usd"`
	Quote       any            `json:"quote,omitempty"`
	Swap        any            `json:"swap,omitempty"`
	Execution   any            `json:"execution,omitempty"`
}

// Journal accumulates trade entries for one run. Entries go to a WAL
// segment under the run directory as they arrive and to trades.jsonl
// on close.
type Journal struct {
	mu      sync.Mutex
	wal     *gowal.Wal
	runDir  string
	entries []Entry
}

// NewJournal creates the run directory (baseDir/<utc timestamp>) and
// opens the journal WAL inside it.
func NewJournal(baseDir string) (*Journal, error) {
	if baseDir == "" {
		baseDir = "runs"
	}
	runDir := filepath.Join(baseDir, time.Now().UTC().Format("20060102_150405"))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create run dir %s", runDir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              filepath.Join(runDir, "wal"),
		Prefix:           "trade_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init trade WAL")
	}

	return &Journal{wal: wal, runDir: runDir}, nil
}

// RunDir returns the directory all run artifacts live under.
func (j *Journal) RunDir() string {
	return j.runDir
}

// Append journals one executed action.
func (j *Journal) Append(entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal trade entry")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	key := fmt.Sprintf("%s%s_%d", tradeKeyPrefix, entry.PairID, entry.TS)
	if err := j.wal.Write(j.wal.CurrentIndex()+1, key, payload); err != nil {
		return errors.Wrap(err, "write trade entry")
	}
	j.entries = append(j.entries, entry)
	return nil
}

// Entries returns a copy of everything journaled so far.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// ActionCounts tallies journaled entries per action string.
func (j *Journal) ActionCounts() map[string]int {
	j.mu.Lock()
	defer j.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range j.entries {
		counts[e.Action.String()]++
	}
	return counts
}

// Close flushes trades.jsonl into the run directory and closes the WAL.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	records := make([]any, 0, len(j.entries))
	for _, e := range j.entries {
		records = append(records, e)
	}
	if err := WriteJSONL(filepath.Join(j.runDir, "trades.jsonl"), records); err != nil {
		return err
	}
	return errors.Wrap(j.wal.Close(), "close trade WAL")
}

// WriteJSONL writes records one JSON object per line.
func WriteJSONL(path string, records []any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return errors.Wrapf(err, "encode record in %s", path)
		}
	}
	return nil
}

// WriteJSON writes obj as indented JSON with sorted keys.
func WriteJSON(path string, obj any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create dir for %s", path)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", path)
	}
	// Round-trip through a map so top-level keys serialize sorted.
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err == nil {
		if sortedRaw, err := json.MarshalIndent(generic, "", "  "); err == nil {
			return errors.Wrapf(os.WriteFile(path, sortedRaw, 0644), "write %s", path)
		}
	}
	indented, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, indented, 0644), "write %s", path)
}

// sortedActionCounts orders counts by descending count, then name.
func sortedActionCounts(counts map[string]int) []struct {
	Action string
	Count  int
} {
	out := make([]struct {
		Action string
		Count  int
	}, 0, len(counts))
	for action, count := range counts {
		out = append(out, struct {
			Action string
			Count  int
		}{action, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Action < out[j].Action
	})
	return out
}
