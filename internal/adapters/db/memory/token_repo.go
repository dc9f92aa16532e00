package memory

import (
	"context"
	"sync"
	"time"
)

// TokenRepo is an in-process access-token denylist. Entries are dropped
// lazily once the token would have expired anyway.
type TokenRepo struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *TokenRepo) RevokeAccess(_ context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !expiresAt.After(r.now()) {
		return nil
	}
	r.revoked[jti] = expiresAt
	return nil
}

func (r *TokenRepo) IsAccessRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(r.now()) {
		delete(r.revoked, jti)
		return false, nil
	}
	return true, nil
}
