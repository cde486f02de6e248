package transport

import (
	"net"

	"cdviz-collector/internal/bus"
	"cdviz-collector/internal/message"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes grpc.health.v1. The overall service ("") is SERVING while
// the collector runs; every adapter is reported as "<kind>/<name>".
type Server struct {
	grpc   *grpc.Server
	lis    net.Listener
	health *health.Server
}

func StartServer(addr string) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		grpc:   grpc.NewServer(),
		lis:    lis,
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func ServiceName(kind, name string) string { return kind + "/" + name }

func (s *Server) BusCreated(*bus.Bus[message.Message]) {}

func (s *Server) TaskStarted(kind, name string) {
	s.health.SetServingStatus(ServiceName(kind, name), healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) TaskStopped(kind, name string, _ error) {
	s.health.SetServingStatus(ServiceName(kind, name), healthpb.HealthCheckResponse_NOT_SERVING)
}
