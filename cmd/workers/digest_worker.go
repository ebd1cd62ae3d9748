package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/config"
	"github.com/jennajle/jlsa-fall-journal/internal/database"
	"github.com/jennajle/jlsa-fall-journal/internal/digest"
	"github.com/jennajle/jlsa-fall-journal/internal/logging"
	"github.com/jennajle/jlsa-fall-journal/internal/manuscripts"
	"github.com/jennajle/jlsa-fall-journal/internal/notifications"
	"github.com/jennajle/jlsa-fall-journal/pkg/storage"
)

// DigestWorker runs the workflow digest outside the API process
type DigestWorker struct {
	scheduler *digest.Scheduler
	logger    *zap.Logger
	timeout   time.Duration
}

func NewDigestWorker(scheduler *digest.Scheduler, logger *zap.Logger) *DigestWorker {
	return &DigestWorker{
		scheduler: scheduler,
		logger:    logger,
		timeout:   time.Minute,
	}
}

// Start publishes one digest immediately, then follows the schedule until
// ctx is cancelled
func (w *DigestWorker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	if _, err := w.scheduler.RunOnce(runCtx); err != nil {
		w.logger.Error("Initial digest failed", zap.Error(err))
	}
	cancel()

	if err := w.scheduler.Start(); err != nil {
		return err
	}
	w.logger.Info("Digest worker started", zap.Time("next_run", w.scheduler.Next()))

	<-ctx.Done()
	w.logger.Info("Digest worker shutting down")
	w.scheduler.Stop()
	return nil
}

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		zap.NewExample().Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoDB, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer mongoDB.Close(context.Background())

	var opts []notifications.Option
	if cfg.SNS.TopicARN != "" {
		awsCfg, err := storage.LoadAWSConfig(ctx, storage.Config{
			Region:          cfg.SNS.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			logger.Fatal("Failed to load AWS config", zap.Error(err))
		}
		opts = append(opts, notifications.WithEventSink(notifications.NewSNSTopicPublisher(awsCfg, cfg.SNS.TopicARN)))
	} else {
		logger.Warn("No SNS topic configured, digests will only be logged")
	}
	publisher := notifications.NewService(nil, logger, opts...)

	counter := manuscripts.NewService(
		manuscripts.NewMongoRepository(mongoDB.DB),
		manuscripts.NewExecutor(manuscripts.ExecutorConfig{}),
		logger,
	)

	scheduler, err := digest.NewScheduler(counter, publisher, digest.Config{Schedule: cfg.Digest.Schedule}, logger)
	if err != nil {
		logger.Fatal("Failed to create digest scheduler", zap.Error(err))
	}

	if err := NewDigestWorker(scheduler, logger).Start(ctx); err != nil {
		logger.Fatal("Digest worker failed", zap.Error(err))
	}
	logger.Info("Digest worker stopped")
}
