package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"ragchat-be/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Model     ModelConfig
	Retrieval RetrievalConfig
	Memory    MemoryConfig
	Workers   WorkerConfig
}

type AppConfig struct {
	Port               string `validate:"required,numeric"`
	Environment        string
	LogFilePath        string `validate:"required"`
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	DocumentsDirectory string `validate:"required"`
	UploadsDirectory   string `validate:"required"`
	BodyLimitMB        int    `validate:"gt=0"`
	UploadTopic        string `validate:"required"`
}

type DatabaseConfig struct {
	Connection          string
	EmbeddingDimensions int `validate:"gt=0"`
}

type AIConfig struct {
	LLMProvider       string `validate:"oneof=openai ollama"`
	EmbeddingProvider string `validate:"oneof=openai ollama gemini"`
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OllamaBaseURL     string
	OllamaModel       string // embedding model served by ollama
	GeminiAPIKey      string
	SystemPrompt      string
}

// ModelConfig enumerates every completion option the service recognises.
// Values are read once at startup and never mutated afterwards.
type ModelConfig struct {
	ModelName        string   `validate:"required"`
	Temperature      float64  `validate:"gte=0,lte=2"`
	TopP             float64  `validate:"gte=0,lte=1"`
	PresencePenalty  float64  `validate:"gte=-2,lte=2"`
	FrequencyPenalty float64  `validate:"gte=-2,lte=2"`
	MaxTokens        int      `validate:"gt=0"`
	Stop             []string `validate:"max=4"`
	MaxRetries       int      `validate:"gte=0"`
	ResponseFormat   string   `validate:"oneof=text json_object"`
}

type RetrievalConfig struct {
	EmbeddingModelName string  `validate:"required"`
	MaxResults         int     `validate:"gt=0"`
	MinScore           float64 `validate:"gte=0,lte=1"`
	QueryExpansions    int     `validate:"gt=0"`
	ChunkSize          int     `validate:"gt=0"`
	ChunkOverlap       int     `validate:"gte=0,ltfield=ChunkSize"`
}

type MemoryConfig struct {
	MaxTokens       int           `validate:"gt=0"`
	SessionTTL      time.Duration `validate:"gt=0"`
	CleanupInterval time.Duration `validate:"gt=0"`
	TokenizerModel  string
}

type WorkerConfig struct {
	PoolSize int `validate:"gt=0"`
}

// Defaults mirror the values the chat service has always shipped with.
const (
	DefaultModelName          = "gpt-3.5-turbo"
	DefaultTemperature        = 0.2
	DefaultTopP               = 1.0
	DefaultPresencePenalty    = 0.0
	DefaultFrequencyPenalty   = 0.0
	DefaultMaxTokens          = 4000
	DefaultResponseFormat     = "text"
	DefaultMaxRetries         = 3
	DefaultEmbeddingModelName = "text-embedding-3-small"
	DefaultMaxResults         = 5
	DefaultMinScore           = 0.7
	DefaultDocumentsDirectory = "documents/"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	documentsDirectory := strings.TrimSpace(getEnv("DOCUMENTS_DIRECTORY", DefaultDocumentsDirectory))
	if documentsDirectory == "" {
		log.Println("Note: DOCUMENTS_DIRECTORY is empty, using default: documents/")
		documentsDirectory = DefaultDocumentsDirectory
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "logs/stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			DocumentsDirectory: documentsDirectory,
			UploadsDirectory:   getEnv("UPLOADS_DIRECTORY", "uploads/"),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 10),
			UploadTopic:        getEnv("UPLOAD_TOPIC_NAME", "DOCUMENT_UPLOADED"),
		},
		Database: DatabaseConfig{
			Connection:          getEnv("DB_CONNECTION_STRING", ""),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 1536),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "openai"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			SystemPrompt:      getEnv("SYSTEM_PROMPT", ""),
		},
		Model: ModelConfig{
			ModelName:        getEnv("LLM_MODEL", DefaultModelName),
			Temperature:      getEnvAsFloat("LLM_TEMPERATURE", DefaultTemperature),
			TopP:             getEnvAsFloat("LLM_TOP_P", DefaultTopP),
			PresencePenalty:  getEnvAsFloat("LLM_PRESENCE_PENALTY", DefaultPresencePenalty),
			FrequencyPenalty: getEnvAsFloat("LLM_FREQUENCY_PENALTY", DefaultFrequencyPenalty),
			MaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", DefaultMaxTokens),
			Stop:             getEnvAsList("LLM_STOP", nil),
			MaxRetries:       getEnvAsInt("LLM_MAX_RETRIES", DefaultMaxRetries),
			ResponseFormat:   getEnv("LLM_RESPONSE_FORMAT", DefaultResponseFormat),
		},
		Retrieval: RetrievalConfig{
			EmbeddingModelName: getEnv("EMBEDDING_MODEL", DefaultEmbeddingModelName),
			MaxResults:         getEnvAsInt("RETRIEVER_MAX_RESULTS", DefaultMaxResults),
			MinScore:           getEnvAsFloat("RETRIEVER_MIN_SCORE", DefaultMinScore),
			QueryExpansions:    getEnvAsInt("QUERY_EXPANSIONS", 3),
			ChunkSize:          getEnvAsInt("CHUNK_SIZE", 1500),
			ChunkOverlap:       getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Memory: MemoryConfig{
			MaxTokens:       getEnvAsInt("MEMORY_MAX_TOKENS", DefaultMaxTokens),
			SessionTTL:      getEnvAsDuration("SESSION_TTL", time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
			TokenizerModel:  getEnv("TOKENIZER_MODEL", DefaultModelName),
		},
		Workers: WorkerConfig{
			PoolSize: getEnvAsInt("WORKER_POOL_SIZE", 32),
		},
	}
}

// Validate checks every option once. Missing credentials are configuration
// errors and must stop the process before it accepts requests.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperror.Configuration("config.Validate", err.Error())
	}

	if c.Ai.LLMProvider == "openai" && c.Ai.OpenAIAPIKey == "" {
		return apperror.Configuration("config.Validate", "Missing OpenAI API Key (OPENAI_API_KEY)")
	}
	if c.Ai.EmbeddingProvider == "openai" && c.Ai.OpenAIAPIKey == "" {
		return apperror.Configuration("config.Validate", "Missing OpenAI API Key for embeddings (OPENAI_API_KEY)")
	}
	if c.Ai.EmbeddingProvider == "gemini" && c.Ai.GeminiAPIKey == "" {
		return apperror.Configuration("config.Validate", "Missing Gemini API Key (GOOGLE_GEMINI_API_KEY)")
	}
	if c.Database.Connection == "" {
		return apperror.Configuration("config.Validate", "Missing database connection (DB_CONNECTION_STRING)")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(strValue, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
