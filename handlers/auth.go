package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/models"
	"github.com/portfolio-site/portfolio-api/internal/tokens"
	"github.com/portfolio-site/portfolio-api/internal/users"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
	"github.com/portfolio-site/portfolio-api/pkg/metrics"
	"github.com/portfolio-site/portfolio-api/pkg/middleware"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserView is the public projection of a user; the hash never leaves the server.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

func viewOf(u *models.User) UserView {
	return UserView{ID: u.ID.Hex(), Email: u.Email, Name: u.Name, Role: u.Role}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      UserView  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	usersSvc *users.Service
	issuer   *tokens.Issuer
}

func NewAuthHandler(u *users.Service, issuer *tokens.Issuer) *AuthHandler {
	return &AuthHandler{usersSvc: u, issuer: issuer}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg gin.IRouter) {
	a := rg.Group("/auth")
	a.POST("/register", h.RegisterUser)
	a.POST("/login", h.Login)
	a.GET("/me", middleware.AuthMiddleware(h.issuer), h.Me)
}

func observeAuth(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.AuthAttempts.WithLabelValues(action, result).Inc()
}

func (h *AuthHandler) respondWithToken(c *gin.Context, u *models.User) {
	token, exp, err := h.issuer.Issue(u)
	if err != nil {
		apierr.Write(c, apierr.Wrap(apierr.Internal, "failed to issue token", err))
		return
	}
	c.JSON(http.StatusOK, AuthResponse{User: viewOf(u), Token: token, ExpiresAt: exp})
}

// RegisterUser creates an account and signs the new user in.
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Write(c, apierr.Wrap(apierr.InvalidArgument, "Email and password required", err))
		return
	}
	u, err := h.usersSvc.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	observeAuth("register", err)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	logger.Infow("user registered", "id", u.ID.Hex())
	h.respondWithToken(c, u)
}

// Login exchanges credentials for an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Write(c, apierr.Wrap(apierr.InvalidArgument, "Email and password required", err))
		return
	}
	u, err := h.usersSvc.Login(c.Request.Context(), req.Email, req.Password)
	observeAuth("login", err)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	h.respondWithToken(c, u)
}

// Me returns the account behind the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	u, err := h.usersSvc.Me(c.Request.Context(), claims)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(u))
}
