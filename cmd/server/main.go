package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mercata/orderflow/internal/adapter/handler"
	"github.com/mercata/orderflow/internal/adapter/storage"
	"github.com/mercata/orderflow/internal/core/service"
	"github.com/mercata/orderflow/internal/pkg/telemetry"
)

const (
	defaultHTTPAddr    = ":8080"
	defaultMySQLDSN    = "root:root@tcp(localhost:3306)/orderflow?parseTime=true"
	defaultRedisAddr   = "localhost:6379"
	defaultWorkerCount = 4
	defaultQueueSize   = 1024
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := telemetry.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	httpAddr := envOr("HTTP_ADDR", defaultHTTPAddr)
	mysqlDSN := envOr("MYSQL_DSN", defaultMySQLDSN)
	redisAddr := envOr("REDIS_ADDR", defaultRedisAddr)
	workerCount := envIntOr("REWARD_WORKERS", defaultWorkerCount)
	queueSize := envIntOr("REWARD_QUEUE_SIZE", defaultQueueSize)

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	promoAdapter := storage.NewPromotionAdapter(db)

	calculator := service.NewTotalCalculator(mysqlAdapter, redisAdapter, promoAdapter, logger)
	rewards := service.NewRewardPipeline(mysqlAdapter, mysqlAdapter, queueSize, logger)
	orderService := service.NewOrderService(calculator, mysqlAdapter, mysqlAdapter, rewards, logger)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rewards.Worker(id)
		}(i)
	}
	logger.Info("started reward workers", zap.Int("count", workerCount))

	httpHandler := handler.NewHTTPHandler(orderService, logger)
	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: httpHandler.Routes(),
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	// Drain the reward queue before closing connections.
	rewards.Close()
	wg.Wait()
	logger.Info("reward workers stopped")

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
