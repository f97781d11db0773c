// Package types contains shared data structures used across the genre analyzer.
//
//nolint:revive // "types" is a standard Go package name for shared data structures
package types

import "time"

// Tally maps a genre label to the number of records carrying it.
type Tally map[string]int

// Ranking is a list of genre labels ordered by descending count.
type Ranking []string

// Record represents a single play from a music stream.
type Record struct {
	Timestamp time.Time `json:"timestamp,omitzero"`
	UserID    string    `json:"user_id,omitempty"`
	SongID    string    `json:"song_id,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	Genre     string    `json:"genre"`
	Duration  int       `json:"duration,omitempty"` // seconds
}

// AnalysisResult is the outcome of one genre analysis.
type AnalysisResult struct {
	GenreCounts    Tally   `json:"genre_counts"`
	TopGenres      Ranking `json:"top_genres"`
	ProcessingTime float64 `json:"processing_time"` // seconds
	Workers        int     `json:"workers"`
}

// Total returns the sum of all counts in the tally.
func (t Tally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}
