package bootstrap

import (
	"context"
	"log"
	"time"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/config"
	"ragchat-be/internal/controller"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/repository/implementation"
	"ragchat-be/internal/repository/memory"
	"ragchat-be/internal/service"
	"ragchat-be/internal/websocket"
	"ragchat-be/pkg/embedding"
	pkgEvents "ragchat-be/pkg/events"
	"ragchat-be/pkg/llm"
	"ragchat-be/pkg/llm/factory"
	pktNats "ragchat-be/pkg/nats"
	"ragchat-be/pkg/rag/augment"
	ragEvents "ragchat-be/pkg/rag/events"
	"ragchat-be/pkg/rag/history"
	"ragchat-be/pkg/rag/indexer"
	"ragchat-be/pkg/rag/ingest"
	"ragchat-be/pkg/rag/query"
	"ragchat-be/pkg/rag/search"
	"ragchat-be/pkg/rag/session"
	"ragchat-be/pkg/rag/stream"
	"ragchat-be/pkg/workerpool"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const indexLockTTL = 5 * time.Minute

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	IndexService    service.IIndexService

	WebSocketHub *websocket.Hub
	Logger       logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	streamLogger := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	// 3. Engines
	embeddingProvider, err := embedding.NewEmbeddingProvider(embedding.Settings{
		Provider:      cfg.Ai.EmbeddingProvider,
		Model:         cfg.Retrieval.EmbeddingModelName,
		OpenAIAPIKey:  cfg.Ai.OpenAIAPIKey,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OllamaModel:   cfg.Ai.OllamaModel,
		GeminiAPIKey:  cfg.Ai.GeminiAPIKey,
	})
	if err != nil {
		return nil, apperror.Configuration("bootstrap.NewContainer", err.Error())
	}
	sysLogger.Info("BOOTSTRAP", "Embedding provider ready", map[string]interface{}{"provider": cfg.Ai.EmbeddingProvider})

	llmProvider, err := factory.NewLLMProvider(factory.Settings{
		Provider:   cfg.Ai.LLMProvider,
		APIKey:     cfg.Ai.OpenAIAPIKey,
		BaseURL:    llmBaseURL(cfg),
		MaxRetries: cfg.Model.MaxRetries,
		Defaults:   completionDefaults(cfg.Model),
	})
	if err != nil {
		return nil, apperror.Configuration("bootstrap.NewContainer", err.Error())
	}
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Model.ModelName})

	var counter history.TokenCounter
	tiktoken, err := history.NewTiktokenCounter(cfg.Memory.TokenizerModel)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Tokenizer unavailable, approximating token counts", map[string]interface{}{"error": err.Error()})
		counter = history.ApproxCounter{}
	} else {
		counter = tiktoken
	}

	pool, err := workerpool.New(cfg.Workers.PoolSize)
	if err != nil {
		return nil, apperror.Configuration("bootstrap.NewContainer", err.Error())
	}
	c.closers = append(c.closers, pool.Release)

	// 4. Repositories
	embeddingRepo := implementation.NewDocumentEmbeddingRepository(db)
	ledgerRepo := implementation.NewDocumentLedgerRepository(db)

	// Initialize In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository(cfg.Memory.SessionTTL, cfg.Memory.CleanupInterval, sysLogger)
	sessions := session.NewManager(sessionRepo, cfg.Memory.MaxTokens, counter)

	// 5. Infrastructure
	// NATS
	var bus pkgEvents.Bus
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			bus = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}
	eventPublisher := ragEvents.NewBusPublisher(bus, sysLogger)

	// Redis
	indexerOpts := []indexer.Option{
		indexer.WithPool(pool),
		indexer.WithNotifier(eventPublisher),
	}
	if cfg.App.RedisURL != "" {
		if rdb := connectRedis(cfg.App.RedisURL, sysLogger); rdb != nil {
			indexerOpts = append(indexerOpts, indexer.WithLocker(indexer.NewRedisLocker(rdb, indexLockTTL)))
			c.closers = append(c.closers, func() { rdb.Close() })
		}
	}

	// 6. RAG pipeline
	transformer := query.NewTransformer(llmProvider, cfg.Retrieval.QueryExpansions)
	retriever := search.NewContentRetriever(embeddingProvider, embeddingRepo, search.Config{
		MaxResults: cfg.Retrieval.MaxResults,
		MinScore:   cfg.Retrieval.MinScore,
	}, sysLogger)
	augmentor := augment.NewAugmentor(transformer, retriever, pool)

	ingestor := ingest.NewIngestor(embeddingProvider, embeddingRepo, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	documentIndexer := indexer.New(ledgerRepo, ingestor, sysLogger, indexerOpts...)

	// 7. Services
	chatService := service.NewChatService(
		sessions,
		augmentor,
		llmProvider,
		stream.NewRegistry(),
		eventPublisher,
		sysLogger,
		cfg.Ai.SystemPrompt,
	)
	publisherService := service.NewPublisherService(cfg.App.UploadTopic, pubSub)
	uploadService := service.NewUploadService(cfg.App.DocumentsDirectory, publisherService, sysLogger)
	c.IndexService = service.NewIndexService(cfg.App.DocumentsDirectory, documentIndexer, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.UploadTopic, documentIndexer, pool, sysLogger)

	// WebSocket Hub
	c.WebSocketHub = websocket.NewHub(streamLogger)
	go c.WebSocketHub.Run()
	c.closers = append(c.closers, c.WebSocketHub.Shutdown)

	// 8. Controllers
	c.ChatController = controller.NewChatController(chatService, c.WebSocketHub, streamLogger)
	c.DocumentController = controller.NewDocumentController(uploadService, c.IndexService, cfg.App.UploadsDirectory)

	c.closers = append(c.closers, func() {
		streamLogger.Sync()
		sysLogger.Sync()
	})
	return c, nil
}

// Close releases infrastructure in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func completionDefaults(m config.ModelConfig) llm.Options {
	temperature := m.Temperature
	topP := m.TopP
	presence := m.PresencePenalty
	frequency := m.FrequencyPenalty

	opts := llm.Options{
		Model:            m.ModelName,
		Temperature:      &temperature,
		TopP:             &topP,
		PresencePenalty:  &presence,
		FrequencyPenalty: &frequency,
		MaxTokens:        m.MaxTokens,
		Stop:             m.Stop,
	}
	// "text" is every provider's default and some reject it explicitly
	if m.ResponseFormat != "text" {
		opts.ResponseFormat = m.ResponseFormat
	}
	return opts
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.OpenAIBaseURL
}

func connectRedis(url string, sysLogger logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis, index lock disabled", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		return nil
	}
	return rdb
}
