package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ragchat-be/internal/config"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/pkg/events"
	pktNats "ragchat-be/pkg/nats"
)

// eventlog tails the chat service's domain events into a log file.
func main() {
	cfg := config.Load()
	if cfg.App.NatsURL == "" {
		log.Fatal("Error: NATS_URL is not set")
	}

	eventLogger := logger.NewZapLogger(getEnv("EVENT_LOG_FILE_PATH", "logs/events.log"), cfg.App.Environment == "production")
	defer eventLogger.Sync()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := func(ctx context.Context, event events.Event) error {
		eventLogger.Info("EVENTS", event.EventType(), event.Payload())
		return nil
	}

	for _, eventType := range []string{events.TypeDocumentIndexed, events.TypeChatCompleted} {
		if err := sub.Subscribe(ctx, eventType, "eventlog_"+eventType, handler); err != nil {
			log.Fatalf("Error: Failed to subscribe to %s: %v", eventType, err)
		}
	}

	log.Println("Listening for chat service events...")
	<-ctx.Done()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
