package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidtrans/internal/config"
	"vidtrans/internal/db"
	"vidtrans/internal/handlers"
	"vidtrans/internal/probe"
	"vidtrans/internal/queue"
	"vidtrans/internal/services"
	"vidtrans/internal/store"
	"vidtrans/internal/websocket"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg.AppEnv)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	users := store.NewUserStore(database)
	sessions := store.NewSessionStore(database)
	projects := store.NewProjectStore(database)
	tasks := store.NewTaskStore(database)
	ledger := store.NewLedgerStore(database)
	recharges := store.NewRechargeStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	var publisher queue.Publisher
	if cfg.RedisAddr != "" {
		redisPublisher := queue.NewRedisPublisher(cfg.RedisAddr, cfg.QueueName)
		defer redisPublisher.Close()
		publisher = redisPublisher
		logger.Info("durable queue enabled", zap.String("addr", cfg.RedisAddr), zap.String("queue", cfg.QueueName))
	} else {
		logger.Info("no durable queue configured, polls served synchronously only")
	}

	ledgerSvc := services.NewLedgerService(txRunner, users, ledger, hub)
	projectSvc := services.NewProjectService(txRunner, projects, tasks, ledgerSvc, probe.FFProbe{}, hub, services.ProjectPolicy{
		RatePerMinute:   cfg.RatePerMinute,
		DefaultDuration: cfg.DefaultDuration,
		RefundOnFailure: cfg.RefundOnFailure,
	})
	dispatcher := services.NewDispatcher(txRunner, tasks, projectSvc, publisher)
	rechargeSvc := services.NewRechargeService(txRunner, recharges, users, ledgerSvc, hub, cfg.PointsPerUnit)

	handler := handlers.New(database, txRunner, cfg, users, sessions, projects, tasks, ledger, ledgerSvc, projectSvc, dispatcher, rechargeSvc, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	reclaimCtx, stopReclaim := context.WithCancel(context.Background())
	defer stopReclaim()
	if cfg.TaskReclaimAfter > 0 {
		go reclaimLoop(reclaimCtx, tasks, cfg.TaskReclaimAfter, cfg.TaskReclaimInterval)
	}

	go func() {
		logger.Info("vidtrans API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("shutdown error", zap.Error(err))
	}
}

func newLogger(appEnv string) *zap.Logger {
	if appEnv == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}

// reclaimLoop sweeps tasks stuck in processing back to pending so a new poll
// can pick them up. Only runs when the operator sets a threshold.
func reclaimLoop(ctx context.Context, tasks *store.TaskStore, olderThan, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := tasks.ReclaimStale(ctx, olderThan)
			if err != nil {
				zap.L().Error("task reclaim sweep failed", zap.Error(err))
				continue
			}
			if reclaimed > 0 {
				zap.L().Warn("reclaimed stuck tasks", zap.Int64("count", reclaimed))
			}
		}
	}
}
