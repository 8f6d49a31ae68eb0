package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"upasthiti/internal/auth"
	"upasthiti/internal/config"
	"upasthiti/internal/queue"
	"upasthiti/internal/roster"
	"upasthiti/internal/store"
	"upasthiti/internal/worker"
)

// Worker consumes attendance events from Redis and refreshes roster statistics.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatalf("QUEUE_BACKEND=memory: the API runs the worker in-process, use redis for a standalone worker")
	}

	kv, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer kv.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, consumer will retry", cfg.RedisAddr)
	}
	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)

	w := worker.New(kv, roster.NewDirectory(kv, nil), auth.NewDirectory(kv))

	sweep, err := worker.Schedule(cfg.AlertSweepSchedule, w)
	if err != nil {
		log.Fatalf("sweep schedule: %v", err)
	}
	sweep.Start()
	defer sweep.Stop()
	log.Printf("alert sweep scheduled %q", cfg.AlertSweepSchedule)

	log.Println("worker started, waiting for messages...")
	if err := w.Run(ctx, q); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}
