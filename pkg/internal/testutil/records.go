// Package testutil provides mock implementations and testing utilities for the genre analyzer.
package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"
)

// Secret is a shared JWT secret long enough for auth.New.
const Secret = "test-secret-0123456789abcdef0123456789"

// Records builds one record per genre label.
func Records(genres ...string) []types.Record {
	recs := make([]types.Record, len(genres))
	for i, g := range genres {
		recs[i] = types.Record{Genre: g}
	}
	return recs
}

// RecordsJSON builds an analysis request body with one record per genre label.
func RecordsJSON(genres ...string) string {
	body, err := json.Marshal(map[string]any{"records": Records(genres...)})
	if err != nil {
		panic(fmt.Sprintf("failed to marshal records: %v", err))
	}
	return string(body)
}
