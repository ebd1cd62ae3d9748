package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	v1 "github.com/jennajle/jlsa-fall-journal/api/v1"
	"github.com/jennajle/jlsa-fall-journal/internal/config"
	"github.com/jennajle/jlsa-fall-journal/internal/database"
	"github.com/jennajle/jlsa-fall-journal/internal/digest"
	"github.com/jennajle/jlsa-fall-journal/internal/logging"
	"github.com/jennajle/jlsa-fall-journal/internal/notifications/websocket"
)

func main() {
	// .env is optional
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

	// Connect to database
	mongoDB, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoDB.Close(closeCtx)
	}()

	// Setup Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), v1.RequestLogger(logger), v1.CORS(cfg.Server.AllowedOrigins))

	feed := websocket.NewManager(logger, cfg.Server.AllowedOrigins)
	defer feed.Close()

	journalAPI, err := v1.SetupJournalAPI(ctx, v1.Dependencies{
		DB:     mongoDB.DB,
		Config: cfg,
		Feed:   feed,
		Routes: router.Routes,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Failed to set up API", zap.Error(err))
	}

	// Register Routes
	api := router.Group("/api/v1", journalAPI.Middleware.Optional())
	v1.RegisterJournalRoutes(api, journalAPI)

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := mongoDB.Ping(c.Request.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":      status,
			"timestamp":   time.Now().UTC(),
			"connections": feed.GetConnectionCount(),
		})
	})

	// Workflow digest
	if cfg.Digest.Enabled {
		scheduler, err := digest.NewScheduler(
			journalAPI.ManuscriptService,
			journalAPI.NotificationService,
			digest.Config{Schedule: cfg.Digest.Schedule},
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to create digest scheduler", zap.Error(err))
		}
		if err := scheduler.Start(); err != nil {
			logger.Fatal("Failed to start digest scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.String("journal", cfg.Journal.Title))

	// Graceful Shutdown
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
