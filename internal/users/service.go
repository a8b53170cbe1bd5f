package users

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/models"
	"github.com/portfolio-site/portfolio-api/internal/tokens"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

const bootstrapAdminName = "Dev Admin"

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository

	bootstrapEmail    string
	bootstrapPassword string
	bypass            bool
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// WithBootstrap configures the bootstrap admin credentials. With bypass set,
// Login accepts them without consulting the store.
func (s *Service) WithBootstrap(email, password string, bypass bool) *Service {
	s.bootstrapEmail = normalizeEmail(email)
	s.bootstrapPassword = password
	s.bypass = bypass && s.bootstrapEmail != "" && password != ""
	return s
}

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apierr.Invalid("email and password required")
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apierr.Duplicate("Email already registered")
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, apierr.Storage(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes
		return nil, apierr.Wrap(apierr.InvalidArgument, "password cannot be hashed", err)
	}
	u, err := s.repo.Create(ctx, &models.User{
		Email:    email,
		Password: string(hash),
		Name:     strings.TrimSpace(name),
		Role:     models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apierr.Duplicate("Email already registered")
		}
		return nil, apierr.Storage(err)
	}
	return u, nil
}

// Login checks email/password and returns the matching user.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apierr.Invalid("email and password required")
	}
	if s.bypass && email == s.bootstrapEmail && password == s.bootstrapPassword {
		logger.Warnf("bootstrap admin login bypass used for %s", email)
		return s.bootstrapIdentity(primitive.NewObjectID()), nil
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apierr.Unauthenticated("Invalid credentials")
		}
		return nil, apierr.Storage(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, apierr.Unauthenticated("Invalid credentials")
	}
	return u, nil
}

// Me resolves the account behind verified claims.
func (s *Service) Me(ctx context.Context, claims *tokens.Claims) (*models.User, error) {
	if claims == nil {
		return nil, apierr.Unauthenticated("Unauthorized")
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, apierr.Unauthenticated("invalid token subject")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, apierr.Storage(err)
	}
	// bypass identities are never persisted
	if s.bypass && normalizeEmail(claims.Email) == s.bootstrapEmail && claims.Role == models.RoleAdmin {
		return s.bootstrapIdentity(id), nil
	}
	return nil, apierr.Missing("User not found")
}

func (s *Service) bootstrapIdentity(id primitive.ObjectID) *models.User {
	return &models.User{ID: id, Email: s.bootstrapEmail, Name: bootstrapAdminName, Role: models.RoleAdmin}
}

// SeedAdmin creates the admin account, or refreshes its password and role
// when it already exists. It reports whether a new account was created.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, apierr.Invalid("admin email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return false, apierr.Wrap(apierr.InvalidArgument, "password cannot be hashed", err)
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.repo.SetPasswordAndRole(ctx, existing.ID, string(hash), models.RoleAdmin); err != nil {
			return false, apierr.Storage(err)
		}
		return false, nil
	case !errors.Is(err, ErrUserNotFound):
		return false, apierr.Storage(err)
	}
	_, err = s.repo.Create(ctx, &models.User{Email: email, Password: string(hash), Name: bootstrapAdminName, Role: models.RoleAdmin})
	if err != nil {
		return false, apierr.Storage(err)
	}
	return true, nil
}
