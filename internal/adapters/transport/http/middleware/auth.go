package middleware

import (
	"context"
	"strings"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/response"
	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/jwt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	claimsKey = "auth.claims"
	userIDKey = "auth.user_id"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (jwt.AccessClaims, error)
}

// RequireAuth rejects requests without a valid, non-revoked access token.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := AccessToken(c)
		if token == "" {
			response.Error(c, customErrors.ErrInvalidToken)
			return
		}
		if err := authenticate(c, a, token); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is present and valid,
// and lets anonymous requests through otherwise.
func OptionalAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := AccessToken(c); token != "" {
			_ = authenticate(c, a, token)
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, a Authenticator, token string) error {
	claims, err := a.Authenticate(c.Request.Context(), token)
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return customErrors.ErrInvalidToken
	}
	c.Set(claimsKey, claims)
	c.Set(userIDKey, uid)
	return nil
}

// AccessToken reads the access token from the cookie, falling back to a
// Bearer Authorization header.
func AccessToken(c *gin.Context) string {
	if v, err := c.Cookie(AccessTokenCookie); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func Claims(c *gin.Context) (jwt.AccessClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return jwt.AccessClaims{}, false
	}
	cl, ok := v.(jwt.AccessClaims)
	return cl, ok
}
