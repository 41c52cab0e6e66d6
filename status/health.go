// Package status exposes the station state over the standard gRPC health
// protocol, so supervisors can probe a running station.
package status

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service reported for the scan loop.
const ServiceName = "qrchain.Station"

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer starts out NOT_SERVING until SetServing(true).
func NewServer(opts ...grpc.ServerOption) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(opts...),
		health:     health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.SetServing(false)
	return s
}

// SetServing flips the reported status of ServiceName and of the server as a whole.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", st)
}

// Serve blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// ListenAndServe listens on addr and serves in the background. The returned
// address is the one actually bound.
func (s *Server) ListenAndServe(addr string) (net.Addr, <-chan error, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	errc := make(chan error, 1)
	go func() {
		errc <- s.Serve(lis)
	}()
	return lis.Addr(), errc, nil
}

// Stop reports NOT_SERVING to watchers and stops the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
