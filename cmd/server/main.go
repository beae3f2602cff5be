package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/builderhub/checkout/internal/adapter/handler"
	"github.com/builderhub/checkout/internal/adapter/messaging"
	"github.com/builderhub/checkout/internal/adapter/storage"
	"github.com/builderhub/checkout/internal/config"
	"github.com/builderhub/checkout/internal/core/service"
	"github.com/builderhub/checkout/internal/port"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Error("failed to open mysql", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping mysql", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to redis")

	// RabbitMQ is optional: without it, notifications are only persisted.
	var (
		events port.EventPublisher
		mq     *messaging.RabbitMQ
	)
	if cfg.AMQPURL != "" {
		mq, err = messaging.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Error("failed to connect rabbitmq", "error", err)
			os.Exit(1)
		}
		events = mq
		logger.Info("connected to rabbitmq")
	} else {
		logger.Warn("AMQP_URL not set, notification events disabled")
	}

	// Adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)

	if err := mysqlAdapter.InitSchema(ctx); err != nil {
		logger.Error("failed to init schema", "error", err)
		os.Exit(1)
	}

	// Services
	notifier := service.NewNotifier(mysqlAdapter, events, cfg.NotifyQueueSize, logger)
	notifier.Start(cfg.NotifyWorkers)
	logger.Info("started notification workers", "count", cfg.NotifyWorkers)

	checkout := service.NewCheckoutService(mysqlAdapter, redisAdapter, notifier, service.Config{
		Currency:       cfg.Currency,
		ConversionRate: cfg.ConversionRate,
	}, logger)

	itemReader := storage.NewCachedItemReader(mysqlAdapter, redisAdapter, logger)

	// HTTP server
	httpHandler := handler.NewHTTPHandler(checkout, itemReader, mysqlAdapter, logger)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	notifier.Close()
	logger.Info("notification workers stopped")

	if mq != nil {
		mq.Close()
	}
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
