package bootstrap

import (
	"context"
	"log"
	"os"

	"github.com/campushub/chatbot-go/internal/chat"
	"github.com/campushub/chatbot-go/internal/config"
	"github.com/campushub/chatbot-go/internal/database"
	"github.com/campushub/chatbot-go/internal/kafka"
	"github.com/campushub/chatbot-go/internal/knowledge"
	"github.com/campushub/chatbot-go/internal/logger"
	"github.com/campushub/chatbot-go/internal/storage"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
	container    *dig.Container
}

// Container returns the dependency container.
func (a *App) Container() *dig.Container {
	return a.container
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// Init bootstraps configuration, logger, database connections and other shared
// infrastructure components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}

	// Initialize database.
	db, err := database.InitDB()
	if err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		return database.CloseDB()
	})

	// Background database health checks feed the /health endpoint.
	healthChecker := startHealthChecker(app, db)

	// Initialize Redis (optional). Failure shouldn't block the app.
	rdb, err := database.InitRedis()
	if err != nil {
		logger.Warn("Failed to initialize Redis", zap.Error(err))
		rdb = nil
	} else if rdb != nil {
		app.cleanupTasks = append(app.cleanupTasks, func() error {
			return database.CloseRedis()
		})
	}

	vectorStore, err := buildVectorStore(cfg)
	if err != nil {
		return nil, err
	}

	embedder := knowledge.NewOpenAIEmbedder(
		cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIBaseURL, cfg.AI.EmbeddingModel)

	generator := chat.NewOpenAIGenerator(
		cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIBaseURL, cfg.AI.ChatModel, logger.GetLogger())
	generator.SetTimeout(cfg.AI.RequestTimeout)

	objectStore := buildObjectStore(cfg)

	// Initialize Kafka (optional). Failure shouldn't block the app.
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Warn("Failed to initialize Kafka producer", zap.Error(err))
			producer = nil
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				return producer.Close()
			})
		}
	}

	container, err := buildContainer(cfg, db, rdb, vectorStore, embedder, generator, objectStore, producer, healthChecker)
	if err != nil {
		return nil, err
	}
	app.container = container

	return app, nil
}

// startHealthChecker 启动数据库健康巡检，失败时健康接口退化为无数据库信息
func startHealthChecker(app *App, db *gorm.DB) *database.HealthChecker {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("Failed to access underlying sql.DB for health checks", zap.Error(err))
		return nil
	}

	logrusLogger := &logrus.Logger{
		Out:       os.Stdout,
		Formatter: &logrus.JSONFormatter{},
		Level:     logrus.InfoLevel,
	}
	checker := database.NewHealthChecker(sqlDB, logrusLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go checker.Start(ctx)
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		cancel()
		checker.Stop()
		return nil
	})
	return checker
}

// buildVectorStore 按配置选择向量库实现
func buildVectorStore(cfg *config.Config) (knowledge.VectorStore, error) {
	switch cfg.Knowledge.VectorStore.Provider {
	case "qdrant":
		return knowledge.NewQdrantVectorStore(knowledge.QdrantOptions{
			Endpoint:   cfg.Knowledge.VectorStore.Qdrant.Endpoint,
			APIKey:     cfg.Knowledge.VectorStore.Qdrant.APIKey,
			Collection: cfg.Knowledge.Collection,
			UseTLS:     cfg.Knowledge.VectorStore.Qdrant.UseTLS,
			Timeout:    cfg.Knowledge.VectorStore.Qdrant.Timeout,
		})
	case "milvus":
		return knowledge.NewMilvusVectorStore(knowledge.MilvusOptions{
			Address:    cfg.Knowledge.VectorStore.Milvus.Address,
			Username:   cfg.Knowledge.VectorStore.Milvus.Username,
			Password:   cfg.Knowledge.VectorStore.Milvus.Password,
			Database:   cfg.Knowledge.VectorStore.Milvus.Database,
			Collection: cfg.Knowledge.Collection,
			UseTLS:     cfg.Knowledge.VectorStore.Milvus.UseTLS,
		})
	default:
		return knowledge.NewMemoryVectorStore(), nil
	}
}

// buildObjectStore 按配置选择归档存储，MinIO不可用时退回本地目录
func buildObjectStore(cfg *config.Config) storage.ObjectStore {
	if cfg.Knowledge.Storage.Provider == "minio" || cfg.Knowledge.Storage.Provider == "s3" {
		store, err := storage.NewMinIOStore(cfg.Knowledge.Storage)
		if err == nil {
			logger.Info("MinIO object storage initialized",
				zap.String("bucket", cfg.Knowledge.Storage.Bucket))
			return store
		}
		logger.Warn("Failed to initialize MinIO, falling back to local storage", zap.Error(err))
	}

	store, err := storage.NewLocalStore(cfg.FileUpload.UploadPath)
	if err != nil {
		logger.Warn("Failed to initialize local object storage", zap.Error(err))
		return nil
	}
	return store
}

// buildContainer 注册全部依赖提供者
func buildContainer(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	vectorStore knowledge.VectorStore,
	embedder knowledge.Embedder,
	generator chat.Generator,
	objectStore storage.ObjectStore,
	producer *kafka.Producer,
	healthChecker *database.HealthChecker,
) (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		func() *config.Config { return cfg },
		func() *gorm.DB { return db },
		func() *redis.Client { return rdb },
		func() knowledge.VectorStore { return vectorStore },
		func() knowledge.Embedder { return embedder },
		func() chat.Generator { return generator },
		func() storage.ObjectStore { return objectStore },
		func() *kafka.Producer { return producer },
		func() *database.HealthChecker { return healthChecker },
		func() *knowledge.FileParserManager { return knowledge.NewFileParserManager() },
		func(c *config.Config) *knowledge.Chunker {
			return knowledge.NewChunker(c.Knowledge.ChunkSize, c.Knowledge.ChunkOverlap)
		},
		func(parsers *knowledge.FileParserManager, chunker *knowledge.Chunker, emb knowledge.Embedder, store knowledge.VectorStore, gdb *gorm.DB) *knowledge.Ingestor {
			return knowledge.NewIngestor(parsers, chunker, emb, store, gdb, logger.GetLogger())
		},
		func(c *config.Config, emb knowledge.Embedder, store knowledge.VectorStore) *knowledge.Retriever {
			return knowledge.NewRetriever(emb, store, c.Knowledge.TopK, logger.GetLogger())
		},
		func(gdb *gorm.DB) chat.CheckpointStore {
			return chat.NewGormCheckpointStore(gdb, logger.GetLogger())
		},
		func(retriever *knowledge.Retriever, gen chat.Generator, checkpoint chat.CheckpointStore, prod *kafka.Producer) *chat.TurnProcessor {
			return chat.NewTurnProcessor(retriever, gen, checkpoint, prod, logger.GetLogger())
		},
		func(checkpoint chat.CheckpointStore, client *redis.Client) *chat.ThreadManager {
			return chat.NewThreadManager(checkpoint, client, logger.GetLogger())
		},
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}
	return container, nil
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
