// Package main implements a CLI that sends music records to the genre analysis service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/auth"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/client"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/records"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"
)

var (
	baseURL       = flag.String("url", "", "HTTP service URL (e.g., http://localhost:5005)")
	grpcTarget    = flag.String("grpc", "", "gRPC target (e.g., localhost:50055); takes precedence over -url")
	csvPath       = flag.String("csv", "", "CSV file of records (needs a genre column)")
	generate      = flag.Int("generate", 0, "Generate N sample records instead of reading a CSV")
	seed          = flag.Uint64("seed", 1, "Seed for -generate")
	jwtSecretPath = flag.String("jwt-secret-path", os.Getenv("GENRE_ANALYSIS_JWT_SECRET_PATH"), "Absolute path to the JWT shared secret")
	timeout       = flag.Duration("timeout", 2*time.Minute, "Overall deadline for the request including retries")
	verbose       = flag.Bool("v", false, "Verbose output with detailed diagnostics")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s (-url <URL> | -grpc <target>) (-csv <file> | -generate N) [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sends music records to the genre analysis service and prints the ranking.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_JWT_SECRET       - JWT shared secret (content)\n")
		fmt.Fprintf(os.Stderr, "  GENRE_ANALYSIS_JWT_SECRET_PATH  - Path to JWT shared secret file\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -url http://localhost:5005 -csv music_data.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -grpc localhost:50055 -generate 10000\n", os.Args[0])
	}
	flag.Parse()

	if (*baseURL == "" && *grpcTarget == "") || (*csvPath == "" && *generate <= 0) {
		flag.Usage()
		os.Exit(1)
	}

	// Set up structured logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	secret, err := auth.LoadSecret(os.Getenv("GENRE_ANALYSIS_JWT_SECRET"), *jwtSecretPath)
	if err != nil {
		slog.Error("Failed to load JWT secret", "error", err)
		os.Exit(1)
	}

	recs, err := loadRecords()
	if err != nil {
		slog.Error("Failed to load records", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded records", "count", len(recs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	transport := "http"
	start := time.Now()
	var result *types.AnalysisResult
	if *grpcTarget != "" {
		transport = "grpc"
		result, err = analyzeGRPC(ctx, secret, recs)
	} else {
		result, err = analyzeHTTP(ctx, secret, recs)
	}
	latency := time.Since(start)
	if err != nil {
		var se *client.StatusError
		if errors.As(err, &se) {
			slog.Error("Service rejected request", "status", se.StatusCode, "message", se.Message)
		} else {
			slog.Error("Analysis failed", "transport", transport, "error", err)
		}
		os.Exit(1)
	}

	printResult(transport, len(recs), result, latency)
}

func loadRecords() ([]types.Record, error) {
	if *csvPath != "" {
		return records.Load(*csvPath)
	}
	return records.Generate(*generate, *seed), nil
}

func analyzeHTTP(ctx context.Context, secret []byte, recs []types.Record) (*types.AnalysisResult, error) {
	c, err := client.New(client.Config{BaseURL: *baseURL, JWTSecret: secret})
	if err != nil {
		return nil, err
	}
	return c.Analyze(ctx, recs)
}

func analyzeGRPC(ctx context.Context, secret []byte, recs []types.Record) (*types.AnalysisResult, error) {
	c, err := client.DialGRPC(client.GRPCConfig{Target: *grpcTarget, JWTSecret: secret})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close gRPC connection", "error", err)
		}
	}()
	return c.Analyze(ctx, recs)
}

func printResult(transport string, sent int, result *types.AnalysisResult, latency time.Duration) {
	fmt.Printf("\n🎵 Genre Analysis (%s, %d records, %d workers)\n\n", transport, sent, result.Workers)

	if len(result.TopGenres) == 0 {
		fmt.Println("❌ No genres found")
		return
	}

	width := 0
	for _, g := range result.TopGenres {
		width = max(width, len(g))
	}
	for i, g := range result.TopGenres {
		fmt.Printf("%2d. %-*s %d\n", i+1, width, g, result.GenreCounts[g])
	}
	fmt.Println()
	fmt.Printf("   Top genres: %s\n", strings.Join(result.TopGenres, ", "))
	fmt.Printf("   Server processing time: %.6fs\n", result.ProcessingTime)
	fmt.Printf("   Round-trip latency: %s\n", latency.Round(time.Microsecond))
	if total := result.GenreCounts.Total(); total != sent {
		fmt.Printf("⚠️  Server counted %d records, sent %d\n", total, sent)
	}
}
