package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/portfolio-site/portfolio-api/internal/analytics"
	"github.com/portfolio-site/portfolio-api/internal/config"
	"github.com/portfolio-site/portfolio-api/internal/database"
	"github.com/portfolio-site/portfolio-api/internal/document/repository"
	"github.com/portfolio-site/portfolio-api/internal/media"
	"github.com/portfolio-site/portfolio-api/internal/server"
	"github.com/portfolio-site/portfolio-api/internal/users"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
	"github.com/portfolio-site/portfolio-api/pkg/metrics"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: env=%s mongo=%v redis=%v minio=%v", cfg.Server.Environment, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	deps := server.Deps{}

	if addr := cfg.Redis.Addr(); addr != "" {
		rc := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = rc.Close()
		} else {
			logger.Infof("connected to Redis at %s", addr)
			deps.Redis = rc
			defer rc.Close()
		}
	}

	if cfg.MongoDB.URI != "" {
		client, err := connectMongoWithRetry(ctx, cfg.MongoDB)
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDB.Database)

		userRepo := users.NewMongoUserRepository(db.Collection(users.CollectionName))
		if err := userRepo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("users index: %v", err)
		}
		if err := analytics.EnsureIndexes(ctx, db); err != nil {
			logger.Warnf("%v", err)
		}
		deps.Mongo = client
		deps.Users = userRepo
		deps.Documents = repository.NewMongoRepo(db)
		logger.Infof("using MongoDB database %q", cfg.MongoDB.Database)
	} else {
		deps.Users = users.NewMemoryUserRepository()
		deps.Documents = repository.NewMemoryRepo()
	}

	if cfg.MinIO.Endpoint != "" {
		store, err := media.NewMinIOStore(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("media store unavailable: %v", err)
		} else {
			deps.Media = store
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r, svcs := server.NewRouter(cfg, deps)

	if cfg.Auth.BootstrapConfigured() {
		if created, err := svcs.Users.SeedAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
			logger.Errorf("failed to seed admin user: %v", err)
		} else if created {
			logger.Infof("created admin user %s", cfg.Auth.BootstrapAdminEmail)
		} else {
			logger.Infof("updated admin user %s", cfg.Auth.BootstrapAdminEmail)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("portfolio API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// connectMongoWithRetry tolerates the database starting after the API.
func connectMongoWithRetry(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.URI, cfg.Timeout, cfg.MaxPoolSize)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}
