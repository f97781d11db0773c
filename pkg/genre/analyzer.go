// Package genre counts and ranks genre labels across a fixed pool of workers.
package genre

import (
	"log/slog"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"
)

// DefaultMaxWorkers is the worker pool size used when Config.MaxWorkers is unset.
const DefaultMaxWorkers = 4

// Config holds configuration for an Analyzer.
type Config struct {
	MaxWorkers int // Upper bound on concurrent workers (default: 4)
}

// Analyzer tallies genre labels in parallel.
// It holds no state between calls and is safe for concurrent use.
type Analyzer struct {
	maxWorkers int
}

// New creates a new Analyzer.
func New(cfg Config) *Analyzer {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = DefaultMaxWorkers
	}
	return &Analyzer{maxWorkers: workers}
}

// MaxWorkers returns the configured upper bound on workers.
func (a *Analyzer) MaxWorkers() int {
	return a.maxWorkers
}

// tally is the merge target shared by all workers of one Analyze call.
type tally struct {
	counts types.Tally
	mu     sync.Mutex
}

// merge adds a worker's private counts into the shared tally.
func (t *tally) merge(local types.Tally) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for label, n := range local {
		t.counts[label] += n
	}
}

// countBlock counts labels in labels[b.start:b.end] without touching shared state.
func countBlock(labels []string, b block) types.Tally {
	local := make(types.Tally)
	for _, label := range labels[b.start:b.end] {
		local[label]++
	}
	return local
}

// Analyze counts every label, ranks them by descending count, and reports
// how long it took. Empty input yields an empty result without spawning workers.
func (a *Analyzer) Analyze(labels []string) *types.AnalysisResult {
	start := time.Now()

	if len(labels) == 0 {
		return &types.AnalysisResult{
			GenreCounts:    types.Tally{},
			TopGenres:      types.Ranking{},
			ProcessingTime: time.Since(start).Seconds(),
		}
	}

	blocks := partition(len(labels), a.maxWorkers)
	shared := &tally{counts: make(types.Tally)}

	var wg sync.WaitGroup
	wg.Add(len(blocks))
	for _, b := range blocks {
		go func(b block) {
			defer wg.Done()
			shared.merge(countBlock(labels, b))
		}(b)
	}
	wg.Wait()

	ranking := Rank(shared.counts)
	elapsed := time.Since(start)

	slog.Debug("Genre analysis complete",
		"records", len(labels),
		"genres", len(shared.counts),
		"workers", len(blocks),
		"elapsed", elapsed)

	return &types.AnalysisResult{
		GenreCounts:    shared.counts,
		TopGenres:      ranking,
		ProcessingTime: elapsed.Seconds(),
		Workers:        len(blocks),
	}
}

// AnalyzeRecords runs Analyze over the genre of each record.
func (a *Analyzer) AnalyzeRecords(records []types.Record) *types.AnalysisResult {
	return a.Analyze(Labels(records))
}

// Labels extracts the genre label of each record, preserving order.
func Labels(records []types.Record) []string {
	labels := make([]string, len(records))
	for i, r := range records {
		labels[i] = r.Genre
	}
	return labels
}
