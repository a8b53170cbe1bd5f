package users

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/portfolio-site/portfolio-api/internal/models"
)

// MemoryUserRepository keeps accounts in process memory.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]*models.User
	byEmail map[string]primitive.ObjectID
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[primitive.ObjectID]*models.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *r.byID[id]
	return &u, nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *stored
	return &u, nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := normalizeEmail(u.Email)
	if _, taken := r.byEmail[email]; taken {
		return nil, ErrEmailTaken
	}
	stored := *u
	stored.ID = primitive.NewObjectID()
	stored.Email = email
	stored.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.byID[stored.ID] = &stored
	r.byEmail[email] = stored.ID
	out := stored
	return &out, nil
}

func (r *MemoryUserRepository) SetPasswordAndRole(ctx context.Context, id primitive.ObjectID, hash, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Password = hash
	u.Role = role
	u.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return nil
}
