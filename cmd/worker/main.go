package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"ai-policyqa-be/internal/bootstrap"
	"ai-policyqa-be/internal/config"
)

// Standalone worker process for the nats queue backend. It consumes ask
// messages from the broker and publishes responses; run as many instances
// as the work-queue stream should fan out to.
func main() {
	cfg := config.Load()
	if cfg.Queue.Backend != "nats" {
		log.Fatalf("QUEUE_BACKEND=%s: the standalone worker only makes sense on nats", cfg.Queue.Backend)
	}

	container := bootstrap.NewContainer(cfg)
	defer container.Queue.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := container.WorkerService.Start(ctx); err != nil {
		log.Fatalf("Unable to start worker: %v", err)
	}
	log.Println("✅ Worker is consuming, Ctrl-C to stop")

	<-ctx.Done()
	log.Println("Worker shutting down")
}
