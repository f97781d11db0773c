// Package server exposes genre analysis over HTTP/JSON and gRPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/auth"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/genre"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/report"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/rpc"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"

	"google.golang.org/grpc"
)

// Server defaults.
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 5005
	DefaultGRPCPort     = 50055
	DefaultMaxBodyBytes = 32 << 20
	serverReadTimeout   = 30 * time.Second
	serverWriteTimeout  = 30 * time.Second
	serverIdleTimeout   = 60 * time.Second
	shutdownTimeout     = 10 * time.Second
	staleAfter          = 15 * time.Minute
)

// Config holds configuration for creating a new Server.
type Config struct {
	Host         string
	ResultsDir   string // Directory for per-request metrics (empty = disabled)
	JWTSecret    []byte // Shared secret for bearer auth (empty = disabled)
	Port         int
	GRPCPort     int // 0 disables the gRPC listener
	MaxWorkers   int
	MaxBodyBytes int64 // Request size limit for both HTTP bodies and gRPC messages
}

// Server answers genre analysis requests.
type Server struct {
	analyzer *genre.Analyzer
	auth     *auth.Authenticator
	reporter *report.Writer
	metrics  *MetricsCollector
	cfg      Config
}

// New creates a new Server.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	reporter, err := report.NewWriter(cfg.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create report writer: %w", err)
	}

	s := &Server{
		analyzer: genre.New(genre.Config{MaxWorkers: cfg.MaxWorkers}),
		reporter: reporter,
		metrics:  NewMetricsCollector(),
		cfg:      cfg,
	}

	if len(cfg.JWTSecret) > 0 {
		a, err := auth.New(cfg.JWTSecret, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to configure auth: %w", err)
		}
		s.auth = a
	}

	return s, nil
}

// Metrics returns the server's metrics collector.
func (s *Server) Metrics() *MetricsCollector {
	return s.metrics
}

// analyze runs the analyzer and records the outcome.
func (s *Server) analyze(transport string, records []types.Record) *types.AnalysisResult {
	result := s.analyzer.AnalyzeRecords(records)

	elapsed := time.Duration(result.ProcessingTime * float64(time.Second))
	s.metrics.RecordAnalysis(len(records), result.TopGenres, elapsed)

	if err := s.reporter.Save(report.NewMetrics(transport, result)); err != nil {
		slog.Warn("Failed to save metrics", "component", "report", "error", err)
	}

	slog.Info("Analyzed genres",
		"component", transport,
		"records", len(records),
		"genres", len(result.GenreCounts),
		"workers", result.Workers,
		"processing_time", result.ProcessingTime)

	return result
}

// HTTPServer returns an http.Server for the analysis handler.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Handler:      s.Handler(),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}
}

// GRPCServer returns a gRPC server with the analysis service registered.
// It accepts messages up to MaxBodyBytes, the same limit as the HTTP body.
func (s *Server) GRPCServer() *grpc.Server {
	gs := grpc.NewServer(
		grpc.ForceServerCodec(rpc.Codec{}),
		grpc.MaxRecvMsgSize(int(s.cfg.MaxBodyBytes)),
		grpc.UnaryInterceptor(s.unaryAuthInterceptor),
	)
	rpc.RegisterGenreAnalysisServer(gs, &grpcService{s: s})
	return gs
}

// Run listens on the configured addresses and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpAddr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpAddr, err)
	}

	var grpcLis net.Listener
	if s.cfg.GRPCPort > 0 {
		grpcAddr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.GRPCPort))
		grpcLis, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve serves HTTP on httpLis and, when non-nil, gRPC on grpcLis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	hs := s.HTTPServer()
	errCh := make(chan error, 2)

	go func() {
		slog.Info("Starting HTTP server", "component", "http", "addr", httpLis.Addr().String(), "auth", s.auth != nil)
		if err := hs.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var gs *grpc.Server
	if grpcLis != nil {
		gs = s.GRPCServer()
		go func() {
			slog.Info("Starting gRPC server", "component", "grpc", "addr", grpcLis.Addr().String(), "auth", s.auth != nil)
			if err := gs.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down")
	case runErr = <-errCh:
		slog.Error("Server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown failed", "component", "http", "error", err)
	}
	if gs != nil {
		gs.GracefulStop()
	}

	return runErr
}
