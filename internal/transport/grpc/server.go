package grpcx

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger — проверка живости зависимости (пул postgres).
type Pinger interface {
	Ping(ctx context.Context) error
}

// New собирает gRPC-сервер: health-пробы для оркестратора и reflection.
// Доменного API здесь нет — клиенты ходят по HTTP и WS.
func New() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(10*time.Second)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)

	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	return srv, h
}

// WatchReadiness периодически пингует зависимость и двигает health-статус.
// Блокируется до отмены контекста.
func WatchReadiness(ctx context.Context, h *health.Server, dep Pinger, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := dep.Ping(pingCtx); err != nil {
			h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}

	check()
	for {
		select {
		case <-ctx.Done():
			h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return
		case <-ticker.C:
			check()
		}
	}
}
