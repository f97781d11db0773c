// Package rpc defines the gRPC wire contract for the genre analysis service.
//
// Messages travel as JSON through a custom codec, so no generated protobuf
// code is needed on either side.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"

	"google.golang.org/grpc"
)

// Service and method names.
const (
	ServiceName         = "music.GenreAnalysisService"
	AnalyzeGenresMethod = "/" + ServiceName + "/AnalyzeGenres"
)

// AnalyzeRequest carries the records to analyze.
type AnalyzeRequest struct {
	Records []types.Record `json:"records"`
}

// AnalyzeResponse carries the analysis outcome.
type AnalyzeResponse = types.AnalysisResult

// Codec marshals gRPC messages as JSON.
type Codec struct{}

// Name returns the content subtype for the codec.
func (Codec) Name() string { return "json" }

// Marshal encodes v as JSON.
func (Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal: %w", err)
	}
	return b, nil
}

// Unmarshal decodes JSON data into v.
func (Codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal: %w", err)
	}
	return nil
}

// GenreAnalysisServer is the server API for the genre analysis service.
type GenreAnalysisServer interface {
	AnalyzeGenres(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error)
}

// RegisterGenreAnalysisServer registers srv with s.
func RegisterGenreAnalysisServer(s grpc.ServiceRegistrar, srv GenreAnalysisServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GenreAnalysisServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AnalyzeGenres",
			Handler:    analyzeGenresHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "music_service.proto",
}

func analyzeGenresHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalyzeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GenreAnalysisServer).AnalyzeGenres(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AnalyzeGenresMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GenreAnalysisServer).AnalyzeGenres(ctx, req.(*AnalyzeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AnalyzeGenres invokes the unary method on conn.
func AnalyzeGenres(ctx context.Context, conn grpc.ClientConnInterface, req *AnalyzeRequest, opts ...grpc.CallOption) (*AnalyzeResponse, error) {
	out := new(AnalyzeResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := conn.Invoke(ctx, AnalyzeGenresMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
