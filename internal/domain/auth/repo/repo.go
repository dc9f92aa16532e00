package repo

import (
	"context"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

// UserRepo is the credential store consumed by the auth service.
type UserRepo interface {
	// FindByUsernameOrEmail returns the first user whose username or email matches.
	// Empty arguments never match.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (model.User, error)

	Create(ctx context.Context, u model.User) (model.User, error)

	FindByID(ctx context.Context, id uuid.UUID) (model.User, error)

	// UpdateRefreshToken writes only the refresh token column. A nil token clears it.
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error

	// RotateRefreshToken swaps current for next in a single conditional write.
	// It returns ErrNotFound when the stored token is no longer current.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error
}

// TokenRepo is a denylist of access-token ids revoked before their expiry.
type TokenRepo interface {
	RevokeAccess(ctx context.Context, jti string, expiresAt time.Time) error

	IsAccessRevoked(ctx context.Context, jti string) (bool, error)
}

type VideoRepo interface {
	Create(ctx context.Context, v model.Video) (model.Video, error)

	FindByID(ctx context.Context, id uuid.UUID) (model.Video, error)

	ListByOwner(ctx context.Context, ownerID uuid.UUID, req model.PageRequest) (model.Page[model.Video], error)
}
