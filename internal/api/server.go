package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/miradorstack/mirador-roi/internal/config"
	"github.com/miradorstack/mirador-roi/internal/grpc/roiv1"
)

// healthServices are the names reported through grpc.health.v1: the overall server and the ROI engine.
var healthServices = []string{"", roiv1.ServiceName}

// Server hosts the ROIEngine service. Health reports NOT_SERVING until Start and again
// once Shutdown begins, so probes stop routing before connections drain.
type Server struct {
	cfg      config.ServerConfig
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
}

// NewServer listens on cfg.Address.
func NewServer(cfg config.ServerConfig, service roiv1.ROIEngineServer, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}
	return NewServerWithListener(cfg, lis, service, opts...), nil
}

// NewServerWithListener serves on an existing listener, such as a bufconn listener in tests.
func NewServerWithListener(cfg config.ServerConfig, lis net.Listener, service roiv1.ROIEngineServer, opts ...grpc.ServerOption) *Server {
	grpc_prometheus.EnableHandlingTimeHistogram()
	s := &Server{
		cfg:      cfg,
		health:   health.NewServer(),
		listener: lis,
		grpc: grpc.NewServer(append([]grpc.ServerOption{
			grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
			grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
		}, opts...)...),
	}

	roiv1.RegisterROIEngineServer(s.grpc, service)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	grpc_prometheus.Register(s.grpc)

	s.setServing(false)
	return s
}

// Start marks the service healthy and serves until Shutdown.
func (s *Server) Start() error {
	if s.listener == nil {
		return errors.New("server has no listener")
	}
	s.setServing(true)
	return s.grpc.Serve(s.listener)
}

// Shutdown reports NOT_SERVING, then drains in-flight calls. When ctx ends first the
// remaining calls are cut off.
func (s *Server) Shutdown(ctx context.Context) {
	s.setServing(false)

	drained := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		s.grpc.Stop()
		<-drained
	}
}

// Address is the bound listener address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout is how long main waits for Shutdown to drain.
func (s *Server) GracefulTimeout() time.Duration {
	if s.cfg.GracefulTimeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.GracefulTimeout
}

func (s *Server) setServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	for _, name := range healthServices {
		s.health.SetServingStatus(name, status)
	}
}
