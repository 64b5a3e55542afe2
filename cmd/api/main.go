package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/api/handlers"
	"github.com/biomed-agent/backend/internal/cache/redis"
	"github.com/biomed-agent/backend/internal/diagnosis"
	"github.com/biomed-agent/backend/internal/evidence"
	"github.com/biomed-agent/backend/internal/ingestion"
	"github.com/biomed-agent/backend/internal/knowledge"
	"github.com/biomed-agent/backend/internal/llm"
	"github.com/biomed-agent/backend/internal/metrics"
	"github.com/biomed-agent/backend/internal/middleware/ratelimit"
	"github.com/biomed-agent/backend/internal/middleware/security"
	"github.com/biomed-agent/backend/internal/middleware/validation"
	"github.com/biomed-agent/backend/internal/storage/sqlite"
	"github.com/biomed-agent/backend/internal/vector/milvus"
	"github.com/biomed-agent/backend/pkg/config"
	appLogger "github.com/biomed-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting biomedical diagnostic agent API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, report caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	knowledgeStore := knowledge.NewStore(cfg.Knowledge.Dir)
	interpreter := diagnosis.NewInterpreter(cfg.Knowledge.CriticalStates, cfg.Knowledge.AnomalyStates)

	pipelineOpts := []diagnosis.PipelineOption{
		diagnosis.WithReviewThreshold(cfg.Diagnosis.ReviewConfidenceThreshold),
	}

	// Evidence retrieval is auxiliary; if the vector store is down the
	// server still diagnoses, just without citations.
	var milvusClient *milvus.Client
	var processor *ingestion.Processor
	if cfg.Evidence.Enabled {
		milvusClient, err = milvus.NewClient(
			cfg.Milvus.Endpoint,
			cfg.Milvus.CollectionName,
			cfg.Milvus.VectorDim,
		)
		if err != nil {
			appLogger.Warn("Milvus unavailable, evidence retrieval disabled", zap.Error(err))
		} else {
			defer milvusClient.Close()

			if err := milvusClient.EnsureCollection(context.Background()); err != nil {
				appLogger.Fatal("Failed to prepare vector collection", zap.Error(err))
			}

			var retrieverOpts []evidence.RetrieverOption
			if redisClient != nil {
				retrieverOpts = append(retrieverOpts, evidence.WithEmbeddingCache(
					redisClient,
					time.Duration(cfg.Redis.EmbeddingTTLHours)*time.Hour,
				))
			}
			retriever := evidence.NewVectorRetriever(milvusClient, llmClient, retrieverOpts...)
			pipelineOpts = append(pipelineOpts, diagnosis.WithEvidence(
				retriever,
				cfg.Evidence.TopK,
				time.Duration(cfg.Evidence.TimeoutSec)*time.Second,
			))
			processor = ingestion.NewProcessor(sqliteClient, milvusClient, llmClient)
		}
	}

	if cfg.Diagnosis.NarrativeEnabled {
		pipelineOpts = append(pipelineOpts, diagnosis.WithNarrator(llmClient))
	}

	pipeline := diagnosis.NewPipeline(knowledgeStore, interpreter, pipelineOpts...)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxDocumentSize: cfg.Server.BodyLimit,
		Logger:          appLogger.GetLogger(),
	}))

	reportTTL := time.Duration(cfg.Redis.ReportTTLMinutes) * time.Minute
	diagnoseHandler := handlers.NewDiagnoseHandler(pipeline, sqliteClient, redisClient, reportTTL)
	equipmentHandler := handlers.NewEquipmentHandler(knowledgeStore, redisClient)
	documentHandler := handlers.NewDocumentHandler(processor)
	wsHandler := handlers.NewWebSocketHandler(pipeline)

	api := app.Group("/api/v1")

	api.Post("/diagnose", diagnoseHandler.HandleDiagnose)
	api.Get("/diagnose/history", diagnoseHandler.GetDiagnosisHistory)

	api.Get("/equipment/:id", equipmentHandler.GetEquipment)
	api.Post("/equipment/:id/invalidate", equipmentHandler.InvalidateEquipment)

	api.Post("/documents", documentHandler.UploadDocument)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/diagnose", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
