package jwt

import (
	"crypto/rsa"
	"errors"
	"os"
	"slices"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JwtUtilImpl struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   string
	now        func() time.Time
}

type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
}

func NewJWTUtil(cfg *config.Config) (*JwtUtilImpl, error) {
	if cfg.JWTPrivateKeyPath == "" || cfg.JWTPublicKeyPath == "" {
		return nil, customErrors.WrapInternal(errors.New("key paths not configured"), "jwt")
	}
	privPem, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "read private key")
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPem)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "parse private key")
	}

	pubPem, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "read public key")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPem)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "parse public key")
	}

	return NewJWTUtilFromKeys(privKey, pubKey, Options{
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
	})
}

func NewJWTUtilFromKeys(priv *rsa.PrivateKey, pub *rsa.PublicKey, opts Options) (*JwtUtilImpl, error) {
	if priv == nil || pub == nil {
		return nil, customErrors.WrapInternal(errors.New("missing signing key"), "jwt")
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 {
		return nil, customErrors.WrapInternal(errors.New("token ttl must be positive"), "jwt")
	}
	return &JwtUtilImpl{
		privateKey: priv,
		publicKey:  pub,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		issuer:     opts.Issuer,
		audience:   opts.Audience,
		now:        time.Now,
	}, nil
}

func (j *JwtUtilImpl) registered(userID uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := j.now()
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    j.issuer,
		Audience:  jwt.ClaimStrings{j.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (j *JwtUtilImpl) GenerateAccessToken(userID uuid.UUID, username, email string) (token string, exp time.Time, jti string, err error) {
	claims := jwt2.AccessClaims{
		RegisteredClaims: j.registered(userID, j.accessTTL),
		Type:             jwt2.TypeAccess,
		Username:         username,
		Email:            email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.privateKey)
	if err != nil {
		return "", time.Time{}, "", customErrors.WrapInternal(err, "sign access token")
	}

	return signed, claims.ExpiresAt.Time, claims.ID, nil
}

func (j *JwtUtilImpl) GenerateRefreshToken(userID uuid.UUID) (token string, exp time.Time, jti string, err error) {
	claims := jwt2.RefreshClaims{
		RegisteredClaims: j.registered(userID, j.refreshTTL),
		Type:             jwt2.TypeRefresh,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.privateKey)
	if err != nil {
		return "", time.Time{}, "", customErrors.WrapInternal(err, "sign refresh token")
	}

	return signed, claims.ExpiresAt.Time, claims.ID, nil
}

func (j *JwtUtilImpl) parse(raw string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, customErrors.ErrInvalidToken
		}
		return j.publicKey, nil
	},
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !token.Valid {
		return customErrors.ErrInvalidToken
	}
	return nil
}

func (j *JwtUtilImpl) checkScope(rc jwt.RegisteredClaims) error {
	if j.issuer != "" && rc.Issuer != j.issuer {
		return customErrors.ErrInvalidToken
	}
	if j.audience != "" && !slices.Contains(rc.Audience, j.audience) {
		return customErrors.ErrInvalidToken
	}
	if _, err := uuid.Parse(rc.Subject); err != nil {
		return customErrors.ErrInvalidToken
	}
	return nil
}

func (j *JwtUtilImpl) ValidateAccessToken(raw string) (jwt2.AccessClaims, error) {
	var claims jwt2.AccessClaims
	if err := j.parse(raw, &claims); err != nil {
		return jwt2.AccessClaims{}, err
	}
	if claims.Type != jwt2.TypeAccess {
		return jwt2.AccessClaims{}, customErrors.ErrInvalidToken
	}
	if err := j.checkScope(claims.RegisteredClaims); err != nil {
		return jwt2.AccessClaims{}, err
	}
	return claims, nil
}

func (j *JwtUtilImpl) ValidateRefreshToken(raw string) (jwt2.RefreshClaims, error) {
	var claims jwt2.RefreshClaims
	if err := j.parse(raw, &claims); err != nil {
		return jwt2.RefreshClaims{}, err
	}
	if claims.Type != jwt2.TypeRefresh {
		return jwt2.RefreshClaims{}, customErrors.ErrInvalidToken
	}
	if err := j.checkScope(claims.RegisteredClaims); err != nil {
		return jwt2.RefreshClaims{}, err
	}
	return claims, nil
}
