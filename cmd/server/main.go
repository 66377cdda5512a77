package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/TrustPay/internal/api"
	"github.com/honeynil/TrustPay/internal/config"
	"github.com/honeynil/TrustPay/internal/handler"
	"github.com/honeynil/TrustPay/internal/infrastructure/auth"
	"github.com/honeynil/TrustPay/internal/infrastructure/kafka"
	"github.com/honeynil/TrustPay/internal/infrastructure/redis"
	"github.com/honeynil/TrustPay/internal/observability"
	"github.com/honeynil/TrustPay/internal/repository/sqlstore"
	service "github.com/honeynil/TrustPay/internal/services"
)

const serviceName = "trustpay"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.Setup(ctx, serviceName, cfg)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("failed to shut down tracing", "error", err)
		}
	}()

	db, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	var cache redis.RedisClient = redis.NopClient{}
	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		cache = client
	} else {
		slog.Warn("REDIS_ADDR not set, token revocation and profile cache disabled")
	}
	defer cache.Close()

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		slog.Warn("KAFKA_BROKERS not set, domain events are not published")
	}
	defer publisher.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	userRepo := sqlstore.NewUserRepository(db)
	transactionRepo := sqlstore.NewTransactionRepository(db)
	storeRepo := sqlstore.NewStoreRepository(db)

	userService := service.NewUserService(userRepo, tokens, cache, publisher)
	transactionService := service.NewTransactionService(userRepo, transactionRepo, publisher)
	storeService := service.NewStoreService(storeRepo, publisher)

	h := handler.NewHandler(userService, transactionService, storeService)
	router := api.SetupRouter(h, tokens, cache, db, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
