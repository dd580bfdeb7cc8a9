package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"microcloudlab-backend/internal/archive"
	"microcloudlab-backend/internal/cache"
	"microcloudlab-backend/internal/config"
	"microcloudlab-backend/internal/handlers"
	"microcloudlab-backend/internal/live"
	applogger "microcloudlab-backend/internal/logger"
	"microcloudlab-backend/internal/metrics"
	"microcloudlab-backend/internal/peripheral"
	"microcloudlab-backend/internal/repository/postgres"

	"go.uber.org/zap"
)

func main() {
	// Контекст всего приложения, отменяется при завершении
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()

	logger, err := applogger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting peripheral simulator service",
		zap.String("port", cfg.ServerPort),
		zap.Int("history_size", cfg.HistorySize),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("catalog_enabled", cfg.DB.DBSource != ""))

	// Общее хранилище истории событий
	store := peripheral.NewStore(cfg.HistorySize)

	hub := live.NewHub(logger)
	defer hub.Close()

	serviceOpts := []peripheral.Option{peripheral.WithBroadcaster(hub)}
	handlerOpts := []handlers.Option{handlers.WithStream(hub)}

	// Архив событий в Redis
	var archiver *archive.Archiver
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Archive.Retention)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer redisCache.Close()
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

		archiver = archive.NewArchiver(redisCache, cfg.Archive.QueueSize, logger)
		archiver.Start(cfg.Archive.Workers)
		logger.Info("Archiver started",
			zap.Int("workers", cfg.Archive.Workers),
			zap.Int("queue_size", cfg.Archive.QueueSize),
			zap.Duration("retention", cfg.Archive.Retention))

		serviceOpts = append(serviceOpts, peripheral.WithArchiver(archiver))
		handlerOpts = append(handlerOpts, handlers.WithArchive(redisCache, archiver))
	}

	// Каталог микроконтроллеров
	if cfg.DB.DBSource != "" {
		repo, err := postgres.NewMicrocontrollerRepository(ctx, cfg.DB, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			repo.Close()
			logger.Info("Database connection closed")
		}()

		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare database schema", zap.Error(err))
		}
		logger.Info("Database connection established")

		handlerOpts = append(handlerOpts, handlers.WithCatalog(repo))
	}

	service := peripheral.NewService(store, logger, serviceOpts...)
	handler := handlers.NewHandler(service, logger, handlerOpts...)
	router := handlers.NewRouter(handler, cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Периодическое обновление метрик
	go updateMetrics(ctx, store, archiver, hub)

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	// Сначала закрываем WebSocket клиентов, Shutdown не ждет hijacked соединения
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Дописываем очередь архива до закрытия Redis
	if archiver != nil {
		archiver.Stop()
		logger.Info("Archiver stopped", zap.Any("stats", archiver.GetStats()))
	}

	logger.Info("Server stopped gracefully")
}

// updateMetrics периодически обновляет метрики
func updateMetrics(ctx context.Context, store *peripheral.Store, archiver *archive.Archiver, hub *live.Hub) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.HistorySize.Set(float64(store.Len()))
			metrics.WebSocketClients.Set(float64(hub.ClientCount()))
			if archiver != nil {
				metrics.ArchiveQueueSize.Set(float64(archiver.QueueSize()))
			}
		}
	}
}
