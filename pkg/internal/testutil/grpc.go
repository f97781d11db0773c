package testutil

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

// ServeBufconn serves gs on an in-memory listener and returns a client connection to it.
// Both are torn down when the test ends.
func ServeBufconn(t *testing.T, gs *grpc.Server) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	go func() {
		if err := gs.Serve(lis); err != nil {
			t.Logf("bufconn server stopped: %v", err)
		}
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial bufconn: %v", err)
	}

	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Logf("failed to close client conn: %v", err)
		}
		gs.Stop()
	})
	return conn
}
