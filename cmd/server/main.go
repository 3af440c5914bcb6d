package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Baaaki/yamdb/internal/audit"
	"github.com/Baaaki/yamdb/internal/config"
	"github.com/Baaaki/yamdb/internal/database"
	"github.com/Baaaki/yamdb/internal/middleware"
	"github.com/Baaaki/yamdb/internal/notify"
	"github.com/Baaaki/yamdb/internal/server"
	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect(cfg)
	database.Migrate()

	// Audit journal
	if err := os.MkdirAll(filepath.Dir(cfg.AuditLogPath), 0o755); err != nil {
		logger.Log.Fatal("Failed to create audit directory", zap.Error(err))
	}
	journal, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		logger.Log.Fatal("Failed to open audit journal", zap.Error(err))
	}
	defer journal.Close()

	if cfg.AuditRetention > 0 {
		removed, err := journal.Prune(time.Now().Add(-cfg.AuditRetention))
		if err != nil {
			logger.Log.Warn("Audit journal prune failed", zap.Error(err))
		} else if removed > 0 {
			logger.Log.Info("Audit journal pruned", zap.Int("removed", removed))
		}
	}

	// Rate limiting: shared through redis when configured, per process otherwise
	limiterConfig := middleware.RateLimiterConfig{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
		Prefix:      "auth",
	}
	var limiter middleware.Limiter = middleware.NewMemoryRateLimiter(limiterConfig)
	if cfg.RedisURL != "" {
		redisClient, err := connectRedis(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		limiter = middleware.NewRateLimiter(redisClient, limiterConfig)
	}

	var notifier notify.Notifier
	switch cfg.MailBackend {
	case "smtp":
		notifier = notify.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.SMTPTimeout)
	case "console":
		notifier = notify.NewConsoleNotifier(cfg.MailFrom)
	default:
		logger.Log.Fatal("Unknown mail backend", zap.String("backend", cfg.MailBackend))
	}

	router := server.NewRouter(server.Deps{
		Config:   cfg,
		DB:       database.DB,
		Limiter:  limiter,
		Notifier: notifier,
		Recorder: journal,
	})

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("addr", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func connectRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
