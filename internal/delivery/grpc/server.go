package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	srv    *grpc.Server
	health *health.Server
	port   int
	l      logger.Logger
}

func NewServer(port int, svc BoxOfficeServer, p tokenParser, m *metrics.Metrics, l logger.Logger) *Server {
	logOpts := []logging.Option{
		logging.WithLogOnEvents(logging.StartCall, logging.FinishCall),
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		m.GRPCServer.UnaryServerInterceptor(),
		logging.UnaryServerInterceptor(InterceptorLogger(l), logOpts...),
		recovery.UnaryServerInterceptor(RecoveryOpt(m, l)),
		AuthInterceptor(p),
	))

	RegisterBoxOfficeServer(srv, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	m.Initialize(srv)

	return &Server{srv: srv, health: hs, port: port, l: l}
}

// Serve blocks until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.l.Infof(context.Background(), "gRPC server is running on %s", lis.Addr())
	if err := s.srv.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", s.port))
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
