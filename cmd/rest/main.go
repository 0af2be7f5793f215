package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ragchat-be/internal/bootstrap"
	"ragchat-be/internal/config"
	"ragchat-be/internal/server"
	"ragchat-be/internal/tracer"
	"ragchat-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(cfg.App.Environment)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	opts := database.DefaultOptions()
	opts.Verbose = cfg.App.Environment != "production"
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, opts)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Close()

	// 5. Start Background Services
	if err := container.ConsumerService.Consume(context.Background()); err != nil {
		log.Fatalf("Consumer failed to start: %v", err)
	}

	if err := os.MkdirAll(cfg.App.DocumentsDirectory, 0755); err != nil {
		log.Fatalf("Documents directory unavailable: %v", err)
	}
	go func() {
		res, err := container.IndexService.IndexDocuments(context.Background())
		if err != nil {
			log.Printf("Initial indexing failed: %v", err)
			return
		}
		log.Printf("Initial indexing done: %d indexed, %d skipped, %d failed", res.Indexed, res.Skipped, res.Failed)
	}()

	// 6. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
