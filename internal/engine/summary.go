package engine

import (
	"fmt"
	"sort"
	"time"
)

// ReasonCount is one reason-code tally row.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// topCounts returns the n highest counts, descending, ties broken by
// reason name for stable output.
func topCounts(counts map[string]int, n int) []ReasonCount {
	out := make([]ReasonCount, 0, len(counts))
	for reason, count := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// WhyNoTrades explains a run that executed nothing.
type WhyNoTrades struct {
	NoActions           bool          `json:"no_actions"`
	TopFilterReasons    []ReasonCount `json:"top_filter_reasons"`
	TopCandidateRejects []ReasonCount `json:"top_candidate_rejects"`
	TopCandidateReasons []ReasonCount `json:"top_candidate_reasons"`
	TopReasonOccurrence []ReasonCount `json:"top_reason_occurrences"`
	Note                string        `json:"note"`
}

// RunSummary is the run_summary.json payload.
type RunSummary struct {
	RunID                 string            `json:"run_id"`
	Timestamp             string            `json:"timestamp"`
	ProviderModes         map[string]string `json:"provider_modes"`
	UniverseSize          int               `json:"universe_size"`
	CandidateCount        int               `json:"candidate_count"`
	FilteredCounts        map[string]int    `json:"filtered_counts"`
	CandidateRejectCounts map[string]int    `json:"candidate_reject_counts"`
	TopCandidateRejects   []ReasonCount     `json:"top_candidate_rejects"`
	CandidateReasonCounts map[string]int    `json:"candidate_reason_counts"`
	TopCandidateReasons   []ReasonCount     `json:"top_candidate_reasons"`
	ReasonOccurrences     map[string]int    `json:"reason_occurrences"`
	TopReasonOccurrences  []ReasonCount     `json:"top_reason_occurrences"`
	OverrideCounts        map[string]int    `json:"override_counts"`
	ActionCount           int               `json:"action_count"`
	ActionCounts          map[string]int    `json:"action_counts"`
	TopRanked             []RankedEntry     `json:"top_ranked"`
	WhyNoTrades           *WhyNoTrades      `json:"why_no_trades"`
}

type summaryInputs struct {
	runID                 string
	providerModes         map[string]string
	universeSize          int
	candidateCount        int
	filteredCounts        map[string]int
	actionCounts          map[string]int
	proposalReasonCounts  map[string]int
	candidateReasonCounts map[string]int
	candidateRejectCounts map[string]int
	rankedEntries         []RankedEntry
}

func buildRunSummary(in summaryInputs) RunSummary {
	totalActions := 0
	for _, count := range in.actionCounts {
		totalActions += count
	}

	var why *WhyNoTrades
	if totalActions == 0 {
		why = &WhyNoTrades{
			NoActions:           true,
			TopFilterReasons:    topCounts(in.filteredCounts, 5),
			TopCandidateRejects: topCounts(in.candidateRejectCounts, 5),
			TopCandidateReasons: topCounts(in.candidateReasonCounts, 5),
			TopReasonOccurrence: topCounts(in.proposalReasonCounts, 5),
			Note:                "No executed actions; review breakout rules, ranking thresholds, and candidate quality.",
		}
	}

	return RunSummary{
		RunID:                 in.runID,
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
		ProviderModes:         in.providerModes,
		UniverseSize:          in.universeSize,
		CandidateCount:        in.candidateCount,
		FilteredCounts:        in.filteredCounts,
		CandidateRejectCounts: in.candidateRejectCounts,
		TopCandidateRejects:   topCounts(in.candidateRejectCounts, 5),
		CandidateReasonCounts: in.candidateReasonCounts,
		TopCandidateReasons:   topCounts(in.candidateReasonCounts, 5),
		ReasonOccurrences:     in.proposalReasonCounts,
		TopReasonOccurrences:  topCounts(in.proposalReasonCounts, 5),
		OverrideCounts: map[string]int{
			"PROVISIONAL_CHAIN_OVERRIDE": in.candidateReasonCounts["PROVISIONAL_CHAIN_OVERRIDE"],
		},
		ActionCount:  totalActions,
		ActionCounts: in.actionCounts,
		TopRanked:    in.rankedEntries,
		WhyNoTrades:  why,
	}
}

// FormatRunFooter renders the one-line run digest printed at exit.
func FormatRunFooter(candidateCount int, actionCounts map[string]int, rejectCounts map[string]int) string {
	totalTrades := 0
	for _, count := range actionCounts {
		totalTrades += count
	}

	topReject := "none"
	if candidateCount > 0 {
		if top := topCounts(rejectCounts, 1); len(top) > 0 {
			pct := float64(top[0].Count) / float64(candidateCount) * 100
			topReject = fmt.Sprintf("%s (%.0f%%)", top[0].Reason, pct)
		}
	}
	return fmt.Sprintf("%d candidates | %d trades | top reject: %s", candidateCount, totalTrades, topReject)
}
