// Package grpcserver отдаёт состояние бота по протоколу grpc.health.v1.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName имя сервиса в ответах health-check.
const ServiceName = "psabot"

// Pinger проверка хранилища журнала.
type Pinger interface {
	Ping(ctx context.Context) error
}

type GRPCServer struct {
	Server  *grpc.Server
	Health  *health.Server
	Checker Pinger
	Logger  *zap.Logger
}

func NewGRPCServer(checker Pinger, logger *zap.Logger) *GRPCServer {
	s := &GRPCServer{
		Health:  health.NewServer(),
		Checker: checker,
		Logger:  logger,
	}
	s.Server = grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(s.Server, s.Health)
	s.Health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve блокируется до Stop.
func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.Server.Serve(lis)
}

// UpdateStatus пингует журнал и выставляет SERVING или NOT_SERVING.
func (s *GRPCServer) UpdateStatus(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.Checker.Ping(pingCtx); err != nil {
		s.Logger.Warn("journal unavailable", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.Health.SetServingStatus(ServiceName, st)
	s.Health.SetServingStatus("", st)
}

// Watch обновляет статус каждые interval до отмены ctx.
func (s *GRPCServer) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	s.UpdateStatus(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.UpdateStatus(ctx)
		}
	}
}

// Stop переводит сервис в NOT_SERVING и дожидается открытых запросов.
func (s *GRPCServer) Stop() {
	s.Health.Shutdown()
	s.Server.GracefulStop()
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.Logger.Debug("gRPC Request",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, err
}
