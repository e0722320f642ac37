package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hives-africa/realtime-service/config"
	"github.com/hives-africa/realtime-service/internal/auth"
	"github.com/hives-africa/realtime-service/internal/bus"
	"github.com/hives-africa/realtime-service/internal/logger"
	"github.com/hives-africa/realtime-service/internal/postgres"
	"github.com/hives-africa/realtime-service/internal/service"
	grpcx "github.com/hives-africa/realtime-service/internal/transport/grpc"
	httpx "github.com/hives-africa/realtime-service/internal/transport/http"
	"github.com/hives-africa/realtime-service/internal/transport/ws"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting realtime-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- postgres ---
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)
	sessionRepo := postgres.NewSessionRepository(db.Pool)
	notificationRepo := postgres.NewNotificationRepository(db.Pool)
	userRepo := postgres.NewUserRepository(db.Pool)

	// --- bus: in-process реестр, при наличии redis — распределённый мост ---
	registry := bus.NewRegistry(cfg.WS.SendBuffer)
	var eventBus bus.Bus = registry
	if cfg.Redis.Addr != "" {
		redisBus, err := bus.NewRedisBus(ctx, registry, cfg.Redis.Addr)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisBus.Close()
		go redisBus.Run(ctx)
		eventBus = redisBus
	}

	// --- services ---
	authz := service.NewAuthorizer(roomRepo, sessionRepo)
	chatSvc := service.NewChatService(roomRepo, messageRepo, notificationRepo, userRepo, authz)
	chatSvc.SetHistoryLimit(cfg.WS.HistoryLimit)
	liveSvc := service.NewLiveService(sessionRepo, authz)
	notifier := service.NewNotifier(notificationRepo)

	// --- auth ---
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	// --- WS + HTTP ---
	wsServer := ws.NewServer(registry, eventBus, verifier, chatSvc, liveSvc, notifier, cfg.WS.PingInterval)
	handler := httpx.NewHandler(chatSvc, liveSvc, notifier, eventBus)
	router := httpx.NewRouter(handler, verifier, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- gRPC: health + reflection ---
	grpcServer, healthSrv := grpcx.New()
	go grpcx.WatchReadiness(ctx, healthSrv, db.Pool, 10*time.Second)

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- err
			return
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}
	stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
