package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-site/portfolio-api/internal/config"
	"github.com/portfolio-site/portfolio-api/internal/document/repository"
	"github.com/portfolio-site/portfolio-api/internal/users"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Environment = "development"
	cfg.JWT.Secret = "server-test-secret"
	cfg.Auth.RequireWriteAuth = true
	cfg.Auth.AdminCollections = config.DefaultAdminCollections
	cfg.Auth.BootstrapAdminEmail = "admin@example.com"
	cfg.Auth.BootstrapAdminPassword = "letmein"
	cfg.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

func memoryDeps() Deps {
	return Deps{Documents: repository.NewMemoryRepo(), Users: users.NewMemoryUserRepository()}
}

func call(g *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g, _ := NewRouter(testConfig(), memoryDeps())

	w := call(g, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", w.Body.String())

	w = call(g, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"mongodb":"memory"`)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestReady_RedisDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := mr.Run()
	require.NoError(t, err)
	deps := memoryDeps()
	deps.Redis = redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})

	g, _ := NewRouter(testConfig(), deps)
	require.Equal(t, http.StatusOK, call(g, http.MethodGet, "/ready", "", "").Code)

	m.Close()
	w := call(g, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"redis":"down"`)
}

func TestAdminFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g, _ := NewRouter(testConfig(), memoryDeps())

	// anonymous writes to administered collections are rejected
	require.Equal(t, http.StatusUnauthorized, call(g, http.MethodPost, "/api/projects", `{"title":"x"}`, "").Code)

	w := call(g, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"letmein"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = call(g, http.MethodPost, "/api/projects/upsert", `{"payload":{"slug":"site","title":"Site"},"onConflict":"slug"}`, login.Token)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(g, http.MethodGet, "/api/projects", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"slug":"site"`)

	// page views go through the same store
	require.Equal(t, http.StatusOK, call(g, http.MethodPost, "/rpc/increment_page_views", `{"page_name":"home"}`, "").Code)
	w = call(g, http.MethodGet, "/api/analytics?page=home", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"views":1`)

	// user accounts are not exposed through the gateway
	require.Equal(t, http.StatusBadRequest, call(g, http.MethodGet, "/api/users", "", "").Code)
}

func TestProductionDisablesBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.Server.Environment = "production"
	g, _ := NewRouter(cfg, memoryDeps())

	w := call(g, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"letmein"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMediaDisabledWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g, _ := NewRouter(testConfig(), memoryDeps())
	require.Equal(t, http.StatusNotFound, call(g, http.MethodGet, "/media/uploads/x.png", "", "").Code)
}
