package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docqa-assistant/internal/ai"
	"docqa-assistant/internal/app"
	"docqa-assistant/internal/cache"
	"docqa-assistant/internal/config"
	"docqa-assistant/internal/ingest"
	"docqa-assistant/internal/pkg/logger"
	mysqlClient "docqa-assistant/internal/platform/mysql"
	rabbitmqClient "docqa-assistant/internal/platform/rabbitmq"
	redisClient "docqa-assistant/internal/platform/redis"
	"docqa-assistant/internal/repository"
	"docqa-assistant/internal/retrieval"
	"docqa-assistant/internal/session"
	"docqa-assistant/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger

	Sessions  *session.Store
	Models    *ai.ModelCache
	Settings  *app.SettingsService
	Documents *app.DocumentService
	Summaries *app.SummaryService
	Chat      *app.ChatService
	Archive   *app.ArchiveService

	// Archive infrastructure, nil unless archive.enabled.
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	ArchiveWorker *worker.TurnArchiveWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log := logger.New(cfg.Log, cfg.App.Env == "prod")

	client := ai.NewOpenAICompatibleClient(cfg.LLMTimeout())
	factory, err := retrieval.NewFactory(cfg.Embedding.Provider, client, cfg.Embedding.BaseURL, cfg.Embedding.APIKey)
	if err != nil {
		return nil, fmt.Errorf("init embeddings failed: %w", err)
	}

	infra := &App{}
	archive := app.NewArchiveService(nil, nil, nil, log)
	if cfg.Archive.Enabled {
		archive, err = infra.connectArchive(ctx, cfg, log)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
	}

	a := Assemble(cfg, log, ai.NewDefaultBuilder(client), factory, archive)
	a.MySQL = infra.MySQL
	a.Redis = infra.Redis
	a.MQConn = infra.MQConn
	a.ArchiveWorker = infra.ArchiveWorker
	return a, nil
}

// Assemble wires the in-memory services. A nil archive disables archiving.
func Assemble(cfg *config.Config, log *zap.Logger, build ai.Builder, factory retrieval.EmbedderFactory, archive *app.ArchiveService) *App {
	if archive == nil {
		archive = app.NewArchiveService(nil, nil, nil, log)
	}
	models := ai.NewModelCache(build, cfg.SessionTTL())
	resolver := app.NewModelResolver(models, ai.ChatConfig{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
	})

	return &App{
		Config:    cfg,
		Logger:    log,
		Sessions:  session.NewStore(cfg.SessionTTL(), cfg.SessionCleanupInterval(), log),
		Models:    models,
		Settings:  app.NewSettingsService(resolver, cfg.Embedding.Provider, log),
		Documents: app.NewDocumentService(ingest.NewIndexer(factory), log),
		Summaries: app.NewSummaryService(resolver, log),
		Chat:      app.NewChatService(resolver, archive, log),
		Archive:   archive,
		StartedAt: time.Now(),
	}
}

func (a *App) connectArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app.ArchiveService, error) {
	db, err := mysqlClient.Open(ctx, cfg.MySQLDSN(), log)
	if err != nil {
		return nil, err
	}
	a.MySQL = db

	redisCli, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.Redis = redisCli

	mqConn, err := rabbitmqClient.Dial(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	a.MQConn = mqConn

	turns := repository.NewTurnRepository(db)
	a.ArchiveWorker = worker.NewTurnArchiveWorker(mqConn, turns, cfg.RabbitMQ.ArchiveQueue, log)
	if err := a.ArchiveWorker.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("start archive worker failed: %w", err)
	}

	turnsTTL, dirtyTTL := redisClient.TTLs(cfg.Redis)
	log.Info("transcript archive enabled", zap.String("queue", cfg.RabbitMQ.ArchiveQueue))
	return app.NewArchiveService(
		rabbitmqClient.NewTurnPublisher(mqConn, cfg.RabbitMQ.ArchiveQueue),
		turns,
		cache.NewArchiveCache(redisCli, turnsTTL, dirtyTTL),
		log,
	), nil
}

func (a *App) Close() error {
	var closeErr error
	if a.ArchiveWorker != nil {
		a.ArchiveWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		if err := mysqlClient.Close(a.MySQL); err != nil {
			closeErr = err
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
