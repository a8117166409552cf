package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appsvc "cropcare/internal/app"
	"cropcare/internal/cache"
	"cropcare/internal/config"
	"cropcare/internal/model"
	"cropcare/internal/platform/database"
	rabbitmqClient "cropcare/internal/platform/rabbitmq"
	redisClient "cropcare/internal/platform/redis"
	"cropcare/internal/predict"
	"cropcare/internal/repository"
	"cropcare/internal/session"
	"cropcare/internal/worker"
	"cropcare/internal/workspace"
)

type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	DB           *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	RecordWorker *worker.AnalysisRecordWorker

	Sessions   *session.Service
	Predictor  *predict.Client
	Workspaces *workspace.Manager
	History    *appsvc.HistoryService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger := NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}
	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	if cfg.Session.Store == "redis" {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = redisCli
	}
	a.Sessions = session.NewService(a.sessionStore(), session.NewTokens(
		cfg.Session.JWTSecret,
		time.Duration(cfg.Session.TTLMinutes)*time.Minute,
	))

	if cfg.History.Enabled {
		if err := a.initHistory(ctx); err != nil {
			return err
		}
	}

	timeout := time.Duration(cfg.Predict.TimeoutSeconds) * time.Second
	a.Predictor = predict.NewClient(cfg.Predict.Origin, 0)

	opts := []workspace.Option{
		workspace.WithLogger(a.Logger),
		workspace.WithTimeout(timeout),
	}
	if a.History != nil {
		opts = append(opts, workspace.WithRecorder(a.History))
	}
	workspaces, err := workspace.NewManager(cfg.App.Workspaces, a.Predictor, a.Predictor.Origin(), opts...)
	if err != nil {
		return err
	}
	a.Workspaces = workspaces

	a.Logger.Info("app initialized",
		"predict_origin", a.Predictor.Origin(),
		"session_store", cfg.Session.Store,
		"history", cfg.History.Enabled,
	)
	return nil
}

func (a *App) sessionStore() session.Store {
	ttl := time.Duration(a.Config.Session.TTLMinutes) * time.Minute
	if a.Redis != nil {
		return session.NewRedisStore(a.Redis, a.Config.Redis.KeyPrefix, ttl)
	}
	return session.NewMemoryStore(session.DefaultMemorySessions, ttl)
}

func (a *App) initHistory(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	a.DB = db
	if err := db.AutoMigrate(&model.AnalysisRecord{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	repo := repository.NewAnalysisRecordRepository(db)

	var publisher appsvc.AnalysisRecordPublisher
	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		a.MQConn = mqConn

		a.RecordWorker = worker.NewAnalysisRecordWorker(mqConn, repo, cfg.RabbitMQ.AnalysisRecordQueue, a.Logger)
		if err := a.RecordWorker.Start(ctx); err != nil {
			return fmt.Errorf("start analysis record worker failed: %w", err)
		}
		publisher = rabbitmqClient.NewAnalysisRecordPublisher(mqConn, cfg.RabbitMQ.AnalysisRecordQueue)
	}

	var historyCache appsvc.HistoryCache
	if a.Redis != nil {
		historyCache = cache.NewHistoryCache(a.Redis, 60*time.Second, 5*time.Second)
	}

	a.History = appsvc.NewHistoryService(repo, publisher, historyCache, cfg.History.Limit)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Workspaces != nil {
		a.Workspaces.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.RecordWorker != nil {
		a.RecordWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
