package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/rpc"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// grpcService adapts Server to rpc.GenreAnalysisServer.
type grpcService struct {
	s *Server
}

// AnalyzeGenres handles the unary gRPC call.
func (g *grpcService) AnalyzeGenres(_ context.Context, req *rpc.AnalyzeRequest) (*rpc.AnalyzeResponse, error) {
	return g.s.analyze("grpc", req.Records), nil
}

// unaryAuthInterceptor enforces bearer auth on every unary call when configured.
func (s *Server) unaryAuthInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.auth == nil {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = strings.TrimSpace(vals[0])
		}
	}

	subject, err := s.auth.VerifyHeader(header)
	if err != nil {
		s.metrics.RecordRejected()
		slog.Info("Rejected call", "component", "grpc", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	slog.Debug("Authenticated call", "component", "grpc", "method", info.FullMethod, "subject", subject)
	return handler(ctx, req)
}
