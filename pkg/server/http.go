package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"
)

// Handler returns the HTTP routes for the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/genre_analysis", s.requireAuth(http.HandlerFunc(s.handleAnalyze)))
	mux.HandleFunc("/_-_/health", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Genre Analysis Service\n/genre_analysis - POST records\n/_-_/health - Health status\n")); err != nil {
			slog.Warn("Failed to write response", "error", err)
		}
	})
	return mux
}

// analyzeRequest distinguishes a missing records key from an empty list.
type analyzeRequest struct {
	Records *[]types.Record `json:"records"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Records == nil {
		s.writeError(w, http.StatusBadRequest, "Missing 'records' in request")
		return
	}

	result := s.analyze("http", *req.Records)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.metrics.Stats()

	// idle until the first analysis and again once requests stop arriving
	status := "ok"
	if stats.TotalRequests == 0 || time.Since(stats.LastRequest) > staleAfter {
		status = "idle"
	}

	last := "never"
	if !stats.LastRequest.IsZero() {
		last = stats.LastRequest.Format(time.RFC3339)
	}
	response := fmt.Sprintf("%s - %d requests served, %d records analyzed, %d genres seen, %d rejected (last: %s)\n",
		status, stats.TotalRequests, stats.TotalRecords, stats.Genres, stats.Rejected, last)

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(response)); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// requireAuth rejects requests without a valid bearer token when auth is configured.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	if s.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := s.auth.VerifyHeader(r.Header.Get("Authorization"))
		if err != nil {
			slog.Info("Rejected request", "component", "http", "remote", r.RemoteAddr, "error", err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="genre-analyzer"`)
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		slog.Debug("Authenticated request", "component", "http", "subject", subject)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.metrics.RecordRejected()
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "component", "http", "error", err)
	}
}
