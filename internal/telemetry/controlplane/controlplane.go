// Package controlplane runs a gRPC server exposing the standard
// grpc_health_v1 health service and reflection, wrapped in the
// go-grpc-middleware logging/recovery interceptor chain and an otelgrpc
// stats handler — generalizing the teacher's infra/server/grpc +
// interceptors.NewStreamAuthInterceptor pattern onto a health surface
// instead of an authenticated business API.
package controlplane

import (
	"context"
	"log/slog"
	"net"

	grpclogging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/webitel/fraktor-go/internal/actor"
)

const extensionID = "telemetry.controlplane"

// Server hosts the control-plane gRPC surface: health + reflection only.
// It reports SERVING once the owning system's user guardian exists and
// NOT_SERVING once Stop is called, so an orchestrator's readiness probe
// tracks the runtime's own lifecycle.
type Server struct {
	addr   string
	system *actor.System
	logger *slog.Logger

	grpc   *grpc.Server
	health *health.Server
}

func New(addr string, system *actor.System, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, system: system, logger: logger}
}

func (s *Server) ID() string { return extensionID }

func (s *Server) Start() error {
	logger := grpclogging.LoggerFunc(func(ctx context.Context, lvl grpclogging.Level, msg string, fields ...any) {
		switch lvl {
		case grpclogging.LevelError:
			s.logger.Error(msg, fields...)
		case grpclogging.LevelWarn:
			s.logger.Warn(msg, fields...)
		default:
			s.logger.Debug(msg, fields...)
		}
	})

	s.grpc = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpclogging.UnaryServerInterceptor(logger),
			recovery.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpclogging.StreamServerInterceptor(logger),
			recovery.StreamServerInterceptor(),
		),
	)

	s.health = health.NewServer()
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.grpc.Serve(ln); err != nil {
			s.logger.Error("controlplane grpc server stopped", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	if s.health != nil {
		s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	return nil
}
