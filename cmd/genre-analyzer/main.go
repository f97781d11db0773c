// Package main runs the genre analysis service over HTTP and gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/auth"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/genre"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/server"
)

var (
	host          = flag.String("host", envOr("GENRE_ANALYSIS_HOST", server.DefaultHost), "Address to bind")
	port          = flag.Int("port", envInt("GENRE_ANALYSIS_PORT", server.DefaultPort), "HTTP port")
	grpcPort      = flag.Int("grpc-port", envInt("GENRE_ANALYSIS_GRPC_PORT", server.DefaultGRPCPort), "gRPC port (0 disables gRPC)")
	workers       = flag.Int("workers", envInt("GENRE_ANALYSIS_WORKERS", genre.DefaultMaxWorkers), "Maximum concurrent workers per analysis")
	jwtSecretPath = flag.String("jwt-secret-path", os.Getenv("GENRE_ANALYSIS_JWT_SECRET_PATH"), "Absolute path to the JWT shared secret (0600 or 0400)")
	resultsDir    = flag.String("results-dir", os.Getenv("GENRE_ANALYSIS_RESULTS_DIR"), "Absolute directory for per-request metrics (empty disables)")
	verbose       = flag.Bool("v", false, "Verbose logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Counts and ranks music genres for records sent over HTTP or gRPC.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_HOST             - Address to bind\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_PORT             - HTTP port\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_GRPC_PORT        - gRPC port\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_WORKERS          - Maximum concurrent workers\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_JWT_SECRET       - JWT shared secret (content)\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_JWT_SECRET_PATH  - Path to JWT shared secret file\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_RESULTS_DIR      - Directory for per-request metrics\n")
	}
	flag.Parse()

	// Set up structured logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	secret, err := auth.LoadSecret(os.Getenv("GENRE_ANALYSIS_JWT_SECRET"), *jwtSecretPath)
	if err != nil {
		slog.Error("Failed to load JWT secret", "error", err)
		os.Exit(1)
	}
	if secret == nil {
		slog.Warn("No JWT secret configured, analysis endpoints are unauthenticated")
	}

	srv, err := server.New(server.Config{
		Host:       *host,
		Port:       *port,
		GRPCPort:   *grpcPort,
		MaxWorkers: *workers,
		JWTSecret:  secret,
		ResultsDir: *resultsDir,
	})
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting genre analysis service",
		"host", *host,
		"port", *port,
		"grpc_port", *grpcPort,
		"workers", *workers,
		"results_dir", *resultsDir)

	if err := srv.Run(ctx); err != nil {
		slog.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Service stopped")
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring %s=%q: %v\n", name, v, err)
		return def
	}
	return n
}
