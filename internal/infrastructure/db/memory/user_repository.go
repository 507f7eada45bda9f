// Package memory provides a process-local user repository.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/authapi/auth-service/internal/core/domain"
)

// UserRepository stores users in an append-only slice with an index by
// identifier. All reads and writes go through one RWMutex, so the
// check-then-insert in Create is atomic.
type UserRepository struct {
	mu      sync.RWMutex
	users   []domain.User
	byIdent map[string]int
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byIdent: make(map[string]int), now: time.Now}
}

func (r *UserRepository) FindByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byIdent[identifier]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := r.users[idx]
	return &u, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byIdent[user.Identifier]; exists {
		return nil, domain.ErrUserExists
	}
	r.users = append(r.users, *user)
	r.byIdent[user.Identifier] = len(r.users) - 1

	created := *user
	return &created, nil
}

func (r *UserRepository) Update(_ context.Context, identifier string, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byIdent[identifier]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := &r.users[idx]
	patch.Apply(u)
	u.UpdatedAt = r.now().UTC()

	updated := *u
	return &updated, nil
}

// Len reports the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
