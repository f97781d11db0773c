// Package report persists per-request analysis metrics as JSON files.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"
)

const (
	// FileName is the metrics file written inside the results directory.
	FileName = "results_genre_analysis.json"
	// dirPerms is the permission for the results directory.
	dirPerms = 0o700
	// filePerms is the permission for metrics files.
	filePerms = 0o600
)

// Metrics summarizes one analysis request.
type Metrics struct {
	RecordedAt     time.Time `json:"recorded_at"`
	Transport      string    `json:"transport"`
	TopGenre       string    `json:"top_genre,omitempty"`
	ProcessingTime float64   `json:"processing_time"`
	NumRecords     int       `json:"num_records"`
	NumGenres      int       `json:"num_genres"`
	Workers        int       `json:"workers"`
}

// NewMetrics builds Metrics from an analysis result.
func NewMetrics(transport string, result *types.AnalysisResult) Metrics {
	m := Metrics{
		RecordedAt:     time.Now(),
		Transport:      transport,
		ProcessingTime: result.ProcessingTime,
		NumRecords:     result.GenreCounts.Total(),
		NumGenres:      len(result.GenreCounts),
		Workers:        result.Workers,
	}
	if len(result.TopGenres) > 0 {
		m.TopGenre = result.TopGenres[0]
	}
	return m
}

// Writer saves the most recent Metrics to a results directory.
// A Writer with an empty directory is disabled and Save is a no-op.
type Writer struct {
	dir     string
	mu      sync.Mutex
	enabled bool
}

// NewWriter creates a Writer for dir. Empty dir disables reporting.
func NewWriter(dir string) (*Writer, error) {
	w := &Writer{dir: dir, enabled: dir != ""}
	if !w.enabled {
		return w, nil
	}

	cleanPath := filepath.Clean(dir)
	if !filepath.IsAbs(cleanPath) {
		return nil, errors.New("results directory must be absolute path")
	}
	if err := os.MkdirAll(cleanPath, dirPerms); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	w.dir = cleanPath
	return w, nil
}

// Enabled reports whether the Writer persists anything.
func (w *Writer) Enabled() bool {
	return w != nil && w.enabled
}

// Path returns the metrics file path.
func (w *Writer) Path() string {
	return filepath.Join(w.dir, FileName)
}

// Save writes m atomically, replacing any previous metrics.
func (w *Writer) Save(m Metrics) error {
	if !w.Enabled() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.Path()
	tmpPath := path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerms)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encoding metrics: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing metrics file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming metrics file: %w", err)
	}

	slog.Debug("Saved metrics", "component", "report", "path", path, "records", m.NumRecords)
	return nil
}

// Load reads the last saved metrics.
func (w *Writer) Load() (Metrics, error) {
	var m Metrics
	if !w.Enabled() {
		return m, errors.New("reporting disabled")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.Path())
	if err != nil {
		return m, fmt.Errorf("reading metrics file: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decoding metrics file: %w", err)
	}
	return m, nil
}
