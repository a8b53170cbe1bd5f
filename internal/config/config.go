package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. Never acceptable outside development.
const DevJWTSecret = "dev_secret_change_me"

// DefaultAdminCollections are the collections whose writes are guarded when
// write auth is required.
var DefaultAdminCollections = []string{"projects", "experience", "experiences", "education", "skills", "contact"}

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IsProduction reports whether SERVER_ENVIRONMENT is "production".
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(s.Environment), "production")
}

type MongoDBConfig struct {
	URI         string
	Database    string
	Timeout     time.Duration
	MaxPoolSize uint64
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type AuthConfig struct {
	// RequireWriteAuth gates writes to AdminCollections behind a bearer token.
	// When false every write is open (insecure development mode).
	RequireWriteAuth       bool
	AdminCollections       []string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// BootstrapConfigured reports whether both bootstrap admin credentials are set.
func (a AuthConfig) BootstrapConfigured() bool {
	return a.BootstrapAdminEmail != "" && a.BootstrapAdminPassword != ""
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "4000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("MONGODB_DATABASE", "portfolio_db")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("MONGODB_MAX_POOL_SIZE", 50)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("JWT_TOKEN_TTL", 10080)
	v.SetDefault("AUTH_REQUIRE_WRITE_AUTH", false)
	v.SetDefault("AUTH_ADMIN_COLLECTIONS", strings.Join(DefaultAdminCollections, ","))
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("MINIO_BUCKET", "portfolio-media")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:         v.GetString("MONGODB_URI"),
			Database:    v.GetString("MONGODB_DATABASE"),
			Timeout:     time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
			MaxPoolSize: v.GetUint64("MONGODB_MAX_POOL_SIZE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("JWT_SECRET"),
			TokenTTL: time.Duration(v.GetInt("JWT_TOKEN_TTL")) * time.Minute,
		},
		Auth: AuthConfig{
			RequireWriteAuth:       v.GetBool("AUTH_REQUIRE_WRITE_AUTH"),
			AdminCollections:       splitList(v.GetString("AUTH_ADMIN_COLLECTIONS")),
			BootstrapAdminEmail:    strings.TrimSpace(v.GetString("AUTH_BOOTSTRAP_ADMIN_EMAIL")),
			BootstrapAdminPassword: v.GetString("AUTH_BOOTSTRAP_ADMIN_PASSWORD"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if cfg.JWT.Secret == "" {
		logger.Warnf("JWT_SECRET is not set; falling back to the development secret. Set a secure value in production")
		cfg.JWT.Secret = DevJWTSecret
	}
	if cfg.JWT.TokenTTL <= 0 {
		cfg.JWT.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.MongoDB.URI == "" {
		logger.Warnf("MONGODB_URI is not set; documents and users will live in process memory only")
	}

	return cfg, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
