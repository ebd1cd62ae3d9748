package v1

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/auth"
	"github.com/jennajle/jlsa-fall-journal/internal/config"
	"github.com/jennajle/jlsa-fall-journal/internal/journal"
	"github.com/jennajle/jlsa-fall-journal/internal/manuscripts"
	"github.com/jennajle/jlsa-fall-journal/internal/notifications"
	"github.com/jennajle/jlsa-fall-journal/internal/notifications/websocket"
	"github.com/jennajle/jlsa-fall-journal/internal/people"
	"github.com/jennajle/jlsa-fall-journal/internal/roles"
	"github.com/jennajle/jlsa-fall-journal/internal/security"
	"github.com/jennajle/jlsa-fall-journal/internal/texts"
	"github.com/jennajle/jlsa-fall-journal/pkg/storage"
)

// Dependencies are the shared resources the API is built from
type Dependencies struct {
	DB     *mongo.Database
	Config *config.Config
	Feed   *websocket.Manager
	Routes journal.RouteLister
	Logger *zap.Logger
}

// JournalAPI holds the journal API handlers and the services behind them
type JournalAPI struct {
	Middleware *auth.Middleware

	Auth          *auth.Handler
	Manuscripts   *manuscripts.Handler
	People        *people.Handler
	Roles         *roles.Handler
	Texts         *texts.Handler
	Notifications *notifications.Handler
	Journal       *journal.Handler

	ManuscriptService   *manuscripts.Service
	PeopleService       *people.Service
	TextService         *texts.Service
	NotificationService *notifications.Service
}

// SetupJournalAPI sets up the journal API with all dependencies
func SetupJournalAPI(ctx context.Context, deps Dependencies) (*JournalAPI, error) {
	cfg := deps.Config
	logger := deps.Logger

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: cfg.Security.JWTSecret,
		Issuer: cfg.Security.TokenIssuer,
		TTL:    cfg.Security.TokenTTL.Std(),
	})
	if err != nil {
		return nil, err
	}
	mw := auth.NewMiddleware(tokens)

	guard, err := security.LoadGuard(ctx, security.NewMongoStore(deps.DB), security.DefaultRecords(cfg.Security.Admins), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load security records: %w", err)
	}

	// People
	peopleService := people.NewService(people.NewMongoRepository(deps.DB), logger)
	peopleHandler := people.NewHandler(peopleService, guard, auth.CallerEmail, cfg.Journal.Title, logger)

	// Auth
	authHandler := auth.NewHandler(auth.NewService(peopleService, tokens, logger), logger)

	// Texts
	textService := texts.NewService(texts.NewMongoRepository(deps.DB), logger)
	if err := textService.Seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed texts: %w", err)
	}
	textHandler := texts.NewHandler(textService, mw.Authenticate(), logger)

	// Notifications
	notificationService, err := setupNotifications(ctx, cfg, deps.Feed, logger)
	if err != nil {
		return nil, err
	}

	// Manuscripts
	if err := manuscripts.EnsureIndexes(ctx, deps.DB); err != nil {
		return nil, fmt.Errorf("failed to create manuscript indexes: %w", err)
	}
	opts := []manuscripts.Option{
		manuscripts.WithPublisher(notificationService),
		manuscripts.WithNotifier(notificationService),
	}
	if cfg.Storage.Enabled() {
		bucket, err := setupStorage(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		opts = append(opts, manuscripts.WithFileStore(bucket))
		logger.Info("Manuscript file storage enabled", zap.String("bucket", bucket.Name()))
	}
	executor := manuscripts.NewExecutor(manuscripts.ExecutorConfig{StrictReferees: cfg.Security.StrictReferees})
	manuscriptService := manuscripts.NewService(manuscripts.NewMongoRepository(deps.DB), executor, logger, opts...)
	manuscriptHandler := manuscripts.NewHandler(manuscriptService, peopleService, mw.Authenticate(), logger)

	return &JournalAPI{
		Middleware:          mw,
		Auth:                authHandler,
		Manuscripts:         manuscriptHandler,
		People:              peopleHandler,
		Roles:               roles.NewHandler(),
		Texts:               textHandler,
		Notifications:       notifications.NewHandler(deps.Feed, logger),
		Journal:             journal.NewHandler(cfg.Journal.Title, peopleService, deps.Routes, logger),
		ManuscriptService:   manuscriptService,
		PeopleService:       peopleService,
		TextService:         textService,
		NotificationService: notificationService,
	}, nil
}

// setupNotifications builds the notification service with whichever of
// SES and SNS are configured
func setupNotifications(ctx context.Context, cfg *config.Config, feed *websocket.Manager, logger *zap.Logger) (*notifications.Service, error) {
	opts := []notifications.Option{notifications.WithJournalTitle(cfg.Journal.Title)}

	if cfg.Mail.Enabled {
		awsCfg, err := loadAWS(ctx, cfg.Mail.Region, cfg.Storage)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notifications.WithMailer(notifications.NewSESMailer(awsCfg, cfg.Mail.From)))
		logger.Info("Author email enabled", zap.String("from", cfg.Mail.From))
	}
	if cfg.SNS.TopicARN != "" {
		awsCfg, err := loadAWS(ctx, cfg.SNS.Region, cfg.Storage)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notifications.WithEventSink(notifications.NewSNSTopicPublisher(awsCfg, cfg.SNS.TopicARN)))
		logger.Info("SNS event forwarding enabled", zap.String("topic", cfg.SNS.TopicARN))
	}

	var broadcaster notifications.Broadcaster
	if feed != nil {
		broadcaster = feed
	}
	return notifications.NewService(broadcaster, logger, opts...), nil
}

func setupStorage(ctx context.Context, sc config.StorageConfig) (*storage.Bucket, error) {
	scfg := storageConfig(sc.Region, sc)
	awsCfg, err := storage.LoadAWSConfig(ctx, scfg)
	if err != nil {
		return nil, err
	}
	return storage.NewBucket(storage.NewS3Client(awsCfg, scfg), sc.Bucket)
}

// loadAWS reuses the storage credentials for other AWS services
func loadAWS(ctx context.Context, region string, sc config.StorageConfig) (aws.Config, error) {
	return storage.LoadAWSConfig(ctx, storageConfig(region, sc))
}

func storageConfig(region string, sc config.StorageConfig) storage.Config {
	return storage.Config{
		Region:          region,
		AccessKeyID:     sc.AccessKeyID,
		SecretAccessKey: sc.SecretAccessKey,
		Endpoint:        sc.Endpoint,
		UsePathStyle:    sc.UsePathStyle,
	}
}

// RegisterJournalRoutes registers every journal route on the router group
func RegisterJournalRoutes(router *gin.RouterGroup, api *JournalAPI) {
	auth.RegisterRoutes(router, api.Auth, api.Middleware)
	api.Journal.RegisterRoutes(router)
	api.Roles.RegisterRoutes(router)
	api.People.RegisterRoutes(router)
	api.Texts.RegisterRoutes(router)
	api.Manuscripts.RegisterRoutes(router)
	api.Notifications.RegisterRoutes(router)
}
