package client

import (
	"context"
	"maps"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/internal/testutil"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/records"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/rpc"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/server"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestGRPCClient_Analyze(t *testing.T) {
	srv, err := server.New(server.Config{JWTSecret: []byte(testutil.Secret), MaxWorkers: 2})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	conn := testutil.ServeBufconn(t, srv.GRPCServer())

	c, err := NewGRPCClient(conn, GRPCConfig{Target: "bufnet", JWTSecret: []byte(testutil.Secret)})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	result, err := c.Analyze(context.Background(), testutil.Records("rock", "jazz", "rock"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !maps.Equal(result.GenreCounts, types.Tally{"rock": 2, "jazz": 1}) {
		t.Errorf("unexpected counts: %v", result.GenreCounts)
	}
	if result.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", result.Workers)
	}
}

func TestGRPCClient_Unauthenticated(t *testing.T) {
	srv, err := server.New(server.Config{JWTSecret: []byte(testutil.Secret)})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	conn := testutil.ServeBufconn(t, srv.GRPCServer())

	c, err := NewGRPCClient(conn, GRPCConfig{Target: "bufnet", RetryAttempts: 3})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = c.Analyze(context.Background(), testutil.Records("rock"))
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
	if got := srv.Metrics().Stats().Rejected; got != 1 {
		t.Errorf("expected a single attempt, server rejected %d", got)
	}
}

// flakyService fails with Unavailable a fixed number of times before succeeding.
type flakyService struct {
	calls    atomic.Int32
	failures int32
}

func (f *flakyService) AnalyzeGenres(_ context.Context, req *rpc.AnalyzeRequest) (*rpc.AnalyzeResponse, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, status.Error(codes.Unavailable, "warming up")
	}
	return &rpc.AnalyzeResponse{
		GenreCounts: types.Tally{"pop": len(req.Records)},
		TopGenres:   types.Ranking{"pop"},
	}, nil
}

func TestGRPCClient_RetriesUnavailable(t *testing.T) {
	svc := &flakyService{failures: 2}
	gs := grpc.NewServer(grpc.ForceServerCodec(rpc.Codec{}))
	rpc.RegisterGenreAnalysisServer(gs, svc)
	conn := testutil.ServeBufconn(t, gs)

	c, err := NewGRPCClient(conn, GRPCConfig{Target: "bufnet", RetryAttempts: 4})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	result, err := c.Analyze(context.Background(), testutil.Records("pop", "pop"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.GenreCounts["pop"] != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
	if n := svc.calls.Load(); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestDialGRPC(t *testing.T) {
	srv, err := server.New(server.Config{})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	lis := bufconn.Listen(1 << 20)
	gs := srv.GRPCServer()
	go func() {
		_ = gs.Serve(lis)
	}()
	defer gs.Stop()

	c, err := DialGRPC(GRPCConfig{
		Target: "passthrough:///bufnet",
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	})
	if err != nil {
		t.Fatalf("DialGRPC failed: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	result, err := c.Analyze(context.Background(), testutil.Records("blues"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.GenreCounts["blues"] != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestGRPCClient_LargeBatch(t *testing.T) {
	srv, err := server.New(server.Config{})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	conn := testutil.ServeBufconn(t, srv.GRPCServer())

	c, err := NewGRPCClient(conn, GRPCConfig{Target: "bufnet"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	// Roughly 6 MB of JSON, above grpc's 4 MB default receive limit.
	recs := records.Generate(50000, 1)
	result, err := c.Analyze(context.Background(), recs)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if total := result.GenreCounts.Total(); total != len(recs) {
		t.Errorf("expected %d records counted, got %d", len(recs), total)
	}
}

func TestGRPCClient_OversizedNotRetried(t *testing.T) {
	srv, err := server.New(server.Config{MaxBodyBytes: 1024})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	conn := testutil.ServeBufconn(t, srv.GRPCServer())

	c, err := NewGRPCClient(conn, GRPCConfig{Target: "bufnet", RetryAttempts: 5})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	start := time.Now()
	_, err = c.Analyze(context.Background(), records.Generate(200, 1))
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
	if elapsed := time.Since(start); elapsed >= initialRetryDelay {
		t.Errorf("expected no retry backoff, took %v", elapsed)
	}
}

func TestDialGRPC_SendLimit(t *testing.T) {
	srv, err := server.New(server.Config{})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	lis := bufconn.Listen(1 << 20)
	gs := srv.GRPCServer()
	go func() {
		_ = gs.Serve(lis)
	}()
	defer gs.Stop()

	c, err := DialGRPC(GRPCConfig{
		Target:          "passthrough:///bufnet",
		MaxMessageBytes: 512,
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	})
	if err != nil {
		t.Fatalf("DialGRPC failed: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	_, err = c.Analyze(context.Background(), records.Generate(100, 1))
	if status.Code(err) != codes.ResourceExhausted {
		t.Errorf("expected ResourceExhausted, got %v", err)
	}
	if got := srv.Metrics().Stats().TotalRequests; got != 0 {
		t.Errorf("expected request to stay on the client, server saw %d", got)
	}
}

func TestRetryableCode(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "unavailable", err: status.Error(codes.Unavailable, "down"), want: true},
		{name: "resource exhausted", err: status.Error(codes.ResourceExhausted, "too large"), want: false},
		{name: "unauthenticated", err: status.Error(codes.Unauthenticated, "no"), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableCode(tt.err); got != tt.want {
				t.Errorf("retryableCode(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
