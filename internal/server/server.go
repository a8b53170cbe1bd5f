// Package server assembles the HTTP router from already-connected dependencies.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/portfolio-site/portfolio-api/handlers"
	"github.com/portfolio-site/portfolio-api/internal/analytics"
	"github.com/portfolio-site/portfolio-api/internal/config"
	"github.com/portfolio-site/portfolio-api/internal/database"
	"github.com/portfolio-site/portfolio-api/internal/document/handler"
	"github.com/portfolio-site/portfolio-api/internal/document/repository"
	"github.com/portfolio-site/portfolio-api/internal/document/service"
	"github.com/portfolio-site/portfolio-api/internal/media"
	"github.com/portfolio-site/portfolio-api/internal/rpc"
	"github.com/portfolio-site/portfolio-api/internal/tokens"
	"github.com/portfolio-site/portfolio-api/internal/users"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
	"github.com/portfolio-site/portfolio-api/pkg/middleware"
)

// Deps are the backing stores the router is built on. Mongo, Redis and Media
// are optional.
type Deps struct {
	Documents repository.Repository
	Users     users.UserRepository
	Mongo     *mongo.Client
	Redis     *redis.Client
	Media     media.Store
}

// Services are the components constructed by NewRouter, exposed for startup
// tasks such as seeding.
type Services struct {
	Users     *users.Service
	Documents *service.Service
	Analytics *analytics.Service
	Issuer    *tokens.Issuer
}

var startTime = time.Now()

// NewRouter wires every route and middleware.
func NewRouter(cfg *config.Config, deps Deps) (*gin.Engine, *Services) {
	issuer := tokens.NewIssuer(cfg.JWT)
	svcs := &Services{
		Users: users.NewService(deps.Users).
			WithBootstrap(cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword, !cfg.Server.IsProduction()),
		Documents: service.New(deps.Documents),
		Analytics: analytics.NewService(deps.Documents),
		Issuer:    issuer,
	}
	if cfg.Auth.BootstrapConfigured() && !cfg.Server.IsProduction() {
		logger.Warnf("bootstrap admin login bypass is enabled for %s", cfg.Auth.BootstrapAdminEmail)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics(), middleware.CORS(cfg.CORS.AllowedOrigins))

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && deps.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(deps.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
			logger.Infof("rate limiter: redis (rps=%.1f burst=%d window=%s)", cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			logger.Infof("rate limiter: memory (rps=%.1f burst=%d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(cfg, deps))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	if !cfg.Auth.RequireWriteAuth {
		logger.Warnf("AUTH_REQUIRE_WRITE_AUTH is false: document writes are open to anyone")
	}
	guard := middleware.RequireWriteAuth(issuer, cfg.Auth.RequireWriteAuth, cfg.Auth.AdminCollections)

	handlers.NewAuthHandler(svcs.Users, issuer).Register(r)
	handler.RegisterRoutes(r, svcs.Documents, guard)
	rpc.RegisterRoutes(r, rpc.NewDispatcher(svcs.Analytics))

	if deps.Media != nil {
		mediaGuard := func(c *gin.Context) { c.Next() }
		if cfg.Auth.RequireWriteAuth {
			mediaGuard = middleware.AuthMiddleware(issuer)
		}
		media.RegisterRoutes(r, deps.Media, mediaGuard)
	} else {
		logger.Infof("media endpoints disabled: MINIO_ENDPOINT not set")
	}

	return r, svcs
}

// readiness returns 200 only when every configured dependency answers.
func readiness(cfg *config.Config, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		status := map[string]string{}

		switch {
		case deps.Mongo != nil:
			if err := database.Ping(ctx, deps.Mongo, cfg.MongoDB.Timeout); err != nil {
				status["mongodb"] = "down"
				ready = false
			} else {
				status["mongodb"] = "up"
			}
		default:
			status["mongodb"] = "memory"
		}

		if deps.Redis != nil {
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				status["redis"] = "down"
				ready = false
			} else {
				status["redis"] = "up"
			}
		}

		code, state := http.StatusOK, "ready"
		if !ready {
			code, state = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(code, gin.H{"status": state, "deps": status, "uptime": time.Since(startTime).Round(time.Second).String()})
	}
}
