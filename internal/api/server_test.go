package api

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-roi/internal/config"
	"github.com/miradorstack/mirador-roi/internal/grpc/roiv1"
)

type echoServer struct {
	roiv1.UnimplementedROIEngineServer
}

func (echoServer) AnalyzeCorrelations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req AnalyzeRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return ToStruct(map[string]any{"window": req.Window, "metrics": req.Metrics})
}

func startBufconn(t *testing.T, service roiv1.ROIEngineServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := NewServerWithListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, service)
	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServerRoundTrip(t *testing.T) {
	conn := startBufconn(t, echoServer{})
	client := roiv1.NewROIEngineClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in, err := structpb.NewStruct(map[string]any{"window": "30d", "metrics": []any{"CSAT"}})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	out, err := client.AnalyzeCorrelations(ctx, in)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if out.AsMap()["window"] != "30d" {
		t.Fatalf("unexpected response %v", out.AsMap())
	}

	_, err = client.GetWorkloadHistory(ctx, &structpb.Struct{})
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("expected unimplemented, got %v", err)
	}

	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: roiv1.ServiceName})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected serving, got %v", health.GetStatus())
	}
}

func TestServerHealthFollowsLifecycle(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	server := NewServerWithListener(config.ServerConfig{}, lis, echoServer{})
	ctx := context.Background()

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := server.health.Check(ctx, &healthpb.HealthCheckRequest{Service: roiv1.ServiceName})
		if err != nil {
			t.Fatalf("health check: %v", err)
		}
		return resp.GetStatus()
	}

	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected not serving before start, got %v", got)
	}

	done := make(chan error, 1)
	go func() { done <- server.Start() }()
	deadline := time.Now().Add(2 * time.Second)
	for check() != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatalf("server never reported serving")
		}
		time.Sleep(5 * time.Millisecond)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected not serving after shutdown, got %v", got)
	}
	// Shutdown may win the race with Serve registering the listener.
	if err := <-done; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		t.Fatalf("serve returned %v", err)
	}
	if server.GracefulTimeout() != 10*time.Second {
		t.Fatalf("expected default graceful timeout, got %v", server.GracefulTimeout())
	}
}
