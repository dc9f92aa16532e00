// Package memory holds process-local stores for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]model.User
	now   func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[uuid.UUID]model.User), now: time.Now}
}

func (r *UserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found model.User
		ok    bool
	)
	// oldest match wins, as in the database stores
	for _, u := range r.users {
		if (username == "" || u.Username != username) && (email == "" || u.Email != email) {
			continue
		}
		if !ok || older(u, found) {
			found, ok = u, true
		}
	}
	if !ok {
		return model.User{}, customErrors.ErrNotFound
	}
	return clone(found), nil
}

func older(a, b model.User) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID.String() < b.ID.String()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (r *UserRepo) Create(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if _, ok := r.users[u.ID]; ok {
		return model.User{}, customErrors.ErrAlreadyExists
	}
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return model.User{}, customErrors.ErrAlreadyExists
		}
	}

	now := r.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.users[u.ID] = clone(u)
	return clone(u), nil
}

func (r *UserRepo) FindByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, customErrors.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepo) UpdateRefreshToken(_ context.Context, id uuid.UUID, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil
	}
	u.RefreshToken = copyToken(token)
	r.users[id] = u
	return nil
}

// RotateRefreshToken replaces the stored refresh token only while it still
// equals current.
func (r *UserRepo) RotateRefreshToken(_ context.Context, id uuid.UUID, current, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != current {
		return customErrors.ErrNotFound
	}
	u.RefreshToken = &next
	r.users[id] = u
	return nil
}

func clone(u model.User) model.User {
	u.RefreshToken = copyToken(u.RefreshToken)
	return u
}

func copyToken(t *string) *string {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
