package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/auth"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/rpc"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"

	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GRPCClient calls the gRPC analysis service.
type GRPCClient struct {
	conn     grpc.ClientConnInterface
	closer   func() error
	auth     *auth.Authenticator
	target   string
	attempts uint
}

// DefaultMaxMessageBytes matches the server's default request size limit.
const DefaultMaxMessageBytes = 32 << 20

// GRPCConfig holds configuration for a gRPC client.
type GRPCConfig struct {
	Target          string // host:port
	JWTSecret       []byte
	DialOptions     []grpc.DialOption // Extra options, e.g. a context dialer in tests
	RetryAttempts   uint
	MaxMessageBytes int // Largest request sent (default: DefaultMaxMessageBytes)
}

// DialGRPC creates a client for the service at cfg.Target.
// The connection is established lazily on the first call.
func DialGRPC(cfg GRPCConfig) (*GRPCClient, error) {
	maxBytes := cfg.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(maxBytes)),
	}, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", cfg.Target, err)
	}

	c, err := NewGRPCClient(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.closer = conn.Close
	return c, nil
}

// NewGRPCClient wraps an existing connection.
func NewGRPCClient(conn grpc.ClientConnInterface, cfg GRPCConfig) (*GRPCClient, error) {
	c := &GRPCClient{
		conn:     conn,
		target:   cfg.Target,
		attempts: cfg.RetryAttempts,
	}
	if c.attempts == 0 {
		c.attempts = DefaultRetryAttempts
	}
	if len(cfg.JWTSecret) > 0 {
		a, err := auth.New(cfg.JWTSecret, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to configure auth: %w", err)
		}
		c.auth = a
	}
	return c, nil
}

// Close releases the underlying connection if DialGRPC created it.
func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// Analyze sends records over gRPC and returns the analysis.
func (c *GRPCClient) Analyze(ctx context.Context, records []types.Record) (*types.AnalysisResult, error) {
	req := &rpc.AnalyzeRequest{Records: records}

	var result *types.AnalysisResult
	err := retry.Do(
		func() error {
			callCtx := ctx
			if c.auth != nil {
				token, err := c.auth.Token(tokenSubject)
				if err != nil {
					return err
				}
				callCtx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
			}
			resp, err := rpc.AnalyzeGenres(callCtx, c.conn, req)
			if err != nil {
				return err
			}
			result = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retry attempt", "component", "retry", "operation", rpc.AnalyzeGenresMethod, "target", c.target, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryableCode),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc analyze: %w", err)
	}
	return result, nil
}

// retryableCode reports whether a failed call may succeed on another attempt.
// ResourceExhausted is not retried: grpc uses it for oversized messages,
// which fail the same way every time.
func retryableCode(err error) bool {
	return status.Code(err) == codes.Unavailable
}
