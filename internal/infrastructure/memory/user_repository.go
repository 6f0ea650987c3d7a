package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	domain "github.com/h4food/foodmarket/internal/domain/user"
)

type UserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.User
}

var _ domain.Repository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{byEmail: make(map[string]*domain.User)}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	email := strings.ToLower(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return "", domain.ErrEmailTaken
	}
	stored := *u
	stored.ID = uuid.NewString()
	stored.Email = email
	r.byEmail[email] = &stored
	u.ID = stored.ID
	return stored.ID, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}
