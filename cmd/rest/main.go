package main

import (
	"context"
	"log"

	"ai-policyqa-be/internal/bootstrap"
	"ai-policyqa-be/internal/config"
	"ai-policyqa-be/internal/server"
	"ai-policyqa-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Queue.Close()

	// 4. Start Background Services
	// With the channel backend the worker runs in-process; the nats backend
	// expects cmd/worker on the broker instead.
	if cfg.Queue.Backend != "nats" {
		log.Println("Background: Starting in-process worker...")
		if err := container.WorkerService.Start(context.Background()); err != nil {
			log.Fatalf("Unable to start worker: %v", err)
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
