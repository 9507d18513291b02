package grpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/panyam/rxauth"
	"github.com/panyam/rxauth/local"
	"github.com/panyam/rxauth/session"
	"github.com/panyam/rxauth/stores/fs"
)

func TestCredentialsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	sessions, err := session.NewFSStore(filepath.Join(dir, "session.json"), "")
	if err != nil {
		t.Fatal(err)
	}
	auth, err := local.New(local.Config{
		AppName:      "grpc-test",
		JWTSecretKey: "test-secret",
		Stores:       fs.New(filepath.Join(dir, "store")),
		Sessions:     sessions,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer auth.Close()
	rx := rxauth.New(auth)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(UnaryAuthInterceptor(DefaultInterceptorConfig(auth.Verifier()))))
	healthpb.RegisterHealthServer(server, health.NewServer())
	go server.Serve(lis)
	defer server.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(&Credentials{Auth: rx, AllowInsecure: true}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated while signed out, got %v", err)
	}

	if _, err := rx.SignInAnonymously().Await(ctx); err != nil {
		t.Fatal(err)
	}
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("unexpected error after sign in: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.Status)
	}
}
