package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"timesheet/internal/attendance"
	"timesheet/internal/config"
	"timesheet/internal/queue"
	"timesheet/internal/store"
)

// Worker drains the check-in journal queue into Postgres.
func main() {
	cfg := config.Load()
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("memory queue is process-local; the api consumes it in-process")
	}

	db, err := store.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	defer db.Close()

	repo := attendance.NewRepository(db.Client)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("journal schema")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.WithField("addr", cfg.RedisAddr).Warn("redis not reachable yet, will keep retrying")
	}

	log.Info("worker started, waiting for journal entries")
	err = attendance.ConsumeJournal(ctx, queue.NewRedisQueue(redisClient.Client, ""), repo, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("worker stopped with error")
		return
	}
	log.Info("worker stopped")
}
