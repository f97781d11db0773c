package server

import (
	"sync"
	"time"
)

// MetricsCollector tracks metrics for the health endpoint.
// All fields are guarded by mu.
type MetricsCollector struct {
	lastRequest     time.Time
	genresSeen      map[string]bool
	mu              sync.RWMutex
	totalRequests   int64
	totalRecords    int64
	rejected        int64
	totalProcessing time.Duration
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		genresSeen: make(map[string]bool),
	}
}

// RecordAnalysis records a completed analysis.
func (m *MetricsCollector) RecordAnalysis(records int, genres []string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range genres {
		m.genresSeen[g] = true
	}
	m.lastRequest = time.Now()
	m.totalProcessing += elapsed
	m.totalRequests++
	m.totalRecords += int64(records)
}

// RecordRejected records a request that never reached the analyzer.
func (m *MetricsCollector) RecordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

// Stats represents collected metrics.
type Stats struct {
	LastRequest     time.Time
	TotalRequests   int64
	TotalRecords    int64
	Rejected        int64
	Genres          int
	TotalProcessing time.Duration
}

// Stats returns the current statistics.
func (m *MetricsCollector) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Genres:          len(m.genresSeen),
		LastRequest:     m.lastRequest,
		TotalProcessing: m.totalProcessing,
		TotalRequests:   m.totalRequests,
		TotalRecords:    m.totalRecords,
		Rejected:        m.rejected,
	}
}
