package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Queue    QueueConfig
	Ai       AIConfig
	Search   SearchConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	WorkerLogFilePath  string
	CorsAllowedOrigins string
	JWTSecret          string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
	RedisURL   string
}

type QueueConfig struct {
	// Backend selects the topology: "channel" runs the worker in-process,
	// "nats" expects a standalone worker on the broker.
	Backend string
	NatsURL string
}

type AIConfig struct {
	LLMProvider    string // "ollama" or "huggingface"
	LLMModel       string
	LLMBaseURL     string
	LLMAPIKey      string
	OllamaBaseURL  string
	EmbeddingModel string
}

type SearchConfig struct {
	Endpoint string
	APIKey   string
}

type PipelineConfig struct {
	RAGK             int
	NeighborRadius   int
	KnownPayers      []string
	StreamLifetime   int // seconds a websocket may stay open
	AbstainMax       float64
	ConfidentMin     float64
	AmbiguityEpsilon float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			WorkerLogFilePath:  getEnv("WORKER_LOG_FILE_PATH", "worker.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Queue: QueueConfig{
			Backend: getEnv("QUEUE_BACKEND", "channel"),
			NatsURL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:       getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:      getEnv("LLM_API_KEY", ""),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Search: SearchConfig{
			Endpoint: getEnv("WEB_SEARCH_ENDPOINT", ""),
			APIKey:   getEnv("WEB_SEARCH_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			RAGK:             getEnvAsInt("PIPELINE_RAG_K", 8),
			NeighborRadius:   getEnvAsInt("PIPELINE_NEIGHBOR_RADIUS", 1),
			KnownPayers:      splitCSV(getEnv("KNOWN_PAYERS", "")),
			StreamLifetime:   getEnvAsInt("STREAM_LIFETIME_SECONDS", 300),
			AbstainMax:       getEnvAsFloat("CONFIDENCE_ABSTAIN_MAX", 0.5),
			ConfidentMin:     getEnvAsFloat("CONFIDENCE_CONFIDENT_MIN", 0.85),
			AmbiguityEpsilon: getEnvAsFloat("PIPELINE_AMBIGUITY_EPSILON", 0.05),
		},
	}
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

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
