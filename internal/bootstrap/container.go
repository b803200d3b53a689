package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ai-policyqa-be/internal/config"
	"ai-policyqa-be/internal/controller"
	"ai-policyqa-be/internal/entity"
	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/internal/repository/contract"
	"ai-policyqa-be/internal/repository/implementation"
	"ai-policyqa-be/internal/service"
	"ai-policyqa-be/pkg/agent"
	"ai-policyqa-be/pkg/corpus"
	"ai-policyqa-be/pkg/database"
	"ai-policyqa-be/pkg/dialogue"
	"ai-policyqa-be/pkg/embedding"
	"ai-policyqa-be/pkg/llm/factory"
	"ai-policyqa-be/pkg/pipeline"
	"ai-policyqa-be/pkg/planner"
	"ai-policyqa-be/pkg/progress"
	"ai-policyqa-be/pkg/queue"
	"ai-policyqa-be/pkg/retrieval"
	"ai-policyqa-be/pkg/websearch"
)

type Container struct {
	Config *config.Config
	Logger logger.ILogger

	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	WorkerService service.IWorkerService

	// Queue is exposed so main can close it on shutdown.
	Queue queue.Queue
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Infrastructure
	// Redis
	opt, err := redis.ParseURL(cfg.Database.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.Database.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Postgres is optional: without it the service runs on the in-memory
	// corpus and skips turn persistence.
	var db *gorm.DB
	if cfg.Database.Connection != "" {
		db, err = database.NewGormDB(cfg.Database.Connection)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to Postgres: %v", err)
		}
		if err := db.AutoMigrate(&entity.ChatTurn{}, &entity.ThreadSnapshot{}); err != nil {
			log.Fatalf("[FATAL] Failed to migrate schema: %v", err)
		}
	} else {
		log.Printf("[WARN] DB_CONNECTION_STRING empty, running without persistence")
	}

	// 3. AI Providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
	)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	webClient := websearch.NewHTTPClient(cfg.Search.Endpoint, cfg.Search.APIKey)
	if !webClient.Configured() {
		log.Printf("[WARN] Web search API key missing, external search disabled")
	}

	// 4. Retrieval and Routing
	var searcher corpus.Searcher
	if db != nil {
		searcher = corpus.NewPgSearcher(db, embeddingProvider)
	} else {
		searcher = corpus.NewStaticSearcher(nil)
	}

	assembler := retrieval.NewAssembler(
		searcher,
		webClient,
		sysLogger,
		retrieval.WithNeighborRadius(cfg.Pipeline.NeighborRadius),
		retrieval.WithThresholds(retrieval.Thresholds{
			AbstainMax:   cfg.Pipeline.AbstainMax,
			ConfidentMin: cfg.Pipeline.ConfidentMin,
		}),
	)
	router := agent.NewRouter(assembler, llmProvider, webClient, sysLogger)

	// 5. Dialogue and Planning
	var states dialogue.StateStore = dialogue.NewCacheStore()
	if db != nil {
		states = service.NewSnapshotStateStore(states, implementation.NewThreadSnapshotRepository(db), sysLogger)
	}
	extractor := dialogue.NewExtractor(cfg.Pipeline.KnownPayers)
	plnr := planner.New(planner.DefaultConfig())

	// 6. Queue topology. The channel backend keeps everything in one
	// process; nats splits API and worker, so shared stores move to Redis.
	var (
		progressStore progress.Store
		responses     queue.ResponseStore
		q             queue.Queue
	)
	if cfg.Queue.Backend == "nats" {
		progressStore = progress.NewRedisStore(rdb)
		responses = queue.NewRedisResponseStore(rdb)
		q, err = queue.NewNATSQueue(cfg.Queue.NatsURL, responses, sysLogger)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to NATS: %v", err)
		}
	} else {
		progressStore = progress.NewMemoryStore()
		responses = queue.NewMemoryResponseStore()
		q = queue.NewChannelQueue(responses, sysLogger)
	}
	log.Printf("[INFO] Using queue backend: %s", cfg.Queue.Backend)

	// 7. Orchestrator
	orchestratorOpts := []pipeline.Option{
		pipeline.WithRAGK(cfg.Pipeline.RAGK),
		pipeline.WithAmbiguityEpsilon(cfg.Pipeline.AmbiguityEpsilon),
		pipeline.WithConfidenceThresholds(assembler.Thresholds()),
	}
	if db != nil {
		var turns contract.ChatTurnRepository = implementation.NewChatTurnRepository(db)
		orchestratorOpts = append(orchestratorOpts, pipeline.WithTurnRecorder(service.NewTurnRecorder(turns)))
	}
	orchestrator := pipeline.NewOrchestrator(
		states,
		extractor,
		plnr,
		router,
		progressStore,
		q,
		sysLogger,
		orchestratorOpts...,
	)

	// 8. Services
	workerLogger := logger.NewIsolatedLogger(cfg.App.WorkerLogFilePath)
	chatService := service.NewChatService(q, progressStore, sysLogger)
	workerService := service.NewWorkerService(q, orchestrator, workerLogger)

	return &Container{
		Config: cfg,
		Logger: sysLogger,
		ChatController: controller.NewChatController(
			chatService,
			time.Duration(cfg.Pipeline.StreamLifetime)*time.Second,
		),
		WorkerService: workerService,
		Queue:         q,
	}
}
