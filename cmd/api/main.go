package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"visa-onboarding-service/internal/api"
	"visa-onboarding-service/internal/auth"
	"visa-onboarding-service/internal/config"
	"visa-onboarding-service/internal/lock"
	"visa-onboarding-service/internal/logging"
	"visa-onboarding-service/internal/storage"
	appTemporal "visa-onboarding-service/internal/temporal"
	"visa-onboarding-service/internal/visa"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "json").Fatal("load config", zap.Error(err))
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.Fatal("postgres ping", zap.Error(err))
	}
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		logger.Fatal("connect minio", zap.Error(err))
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.Fatal("connect temporal", zap.Error(err))
	}
	defer temporalClient.Close()

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		redisClient := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		locker = lock.NewRedisLocker(redisClient, "visa:employee", cfg.LockTTL)
		logger.Info("using redis employee locks", zap.String("addr", cfg.RedisAddr))
	}

	validator, err := auth.NewValidator(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("auth validator", zap.Error(err))
	}

	gateway := visa.NewGateway(visa.Options{
		Store:         store,
		Eligibility:   store,
		Files:         blob,
		Releases:      appTemporal.NewReleaseQueue(temporalClient, cfg.TemporalTaskQueue, cfg.WorkflowIDPrefix),
		Locker:        locker,
		Policy:        cfg.Sequence,
		Logger:        logger.Named("visa"),
		PresignExpiry: cfg.PresignExpiry,
	})

	h := api.NewHandler(gateway, store, cfg.AllowedUploadBytes, logger.Named("api"))
	router := api.NewRouter(h, validator)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api listening", zap.String("port", cfg.HTTPPort), zap.Strings("sequence", sequenceNames(cfg)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func sequenceNames(cfg config.Config) []string {
	types := cfg.Sequence.AllTypes()
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
