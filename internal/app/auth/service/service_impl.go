package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/password"
	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	repo "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/media"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upload is a file the transport has already staged on local disk.
type Upload struct {
	LocalPath string
	Filename  string
}

type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *Upload
	CoverImage *Upload
}

type LoginInput struct {
	Email    string
	Username string
	Password string
}

type LoginResult struct {
	User   model.PublicUser
	Tokens model.TokenPair
}

type Service interface {
	Register(context.Context, RegisterInput) (model.PublicUser, error)
	Login(context.Context, LoginInput) (LoginResult, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	RevokeAccess(ctx context.Context, claims jwt.AccessClaims)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (model.PublicUser, error)
	Authenticate(ctx context.Context, accessToken string) (jwt.AccessClaims, error)
}

type authService struct {
	userRepo  repo.UserRepo
	tokenRepo repo.TokenRepo
	hasher    password.Hasher
	jwtUtil   jwt.JWTUtil
	media     media.Resolver
	v         *validator.Validate
	log       *zap.Logger
	now       func() time.Time
}

func New(
	ur repo.UserRepo,
	tr repo.TokenRepo,
	h password.Hasher,
	jm jwt.JWTUtil,
	mr media.Resolver,
	v *validator.Validate,
	logger *zap.Logger,
) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		userRepo: ur, tokenRepo: tr, hasher: h, jwtUtil: jm, media: mr, v: v,
		log: logger.Named("auth"), now: time.Now,
	}
}

type registerFields struct {
	FullName string `validate:"required"`
	Email    string `validate:"required,email"`
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type loginFields struct {
	Email    string `validate:"required_without=Username"`
	Username string `validate:"required_without=Email"`
	Password string `validate:"required"`
}

func (a *authService) Register(ctx context.Context, in RegisterInput) (model.PublicUser, error) {
	fields := registerFields{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.TrimSpace(in.Email),
		Username: strings.ToLower(strings.TrimSpace(in.Username)),
		Password: strings.TrimSpace(in.Password),
	}
	if err := a.validate(fields, "all fields are required"); err != nil {
		return model.PublicUser{}, err
	}

	_, err := a.userRepo.FindByUsernameOrEmail(ctx, fields.Username, fields.Email)
	switch {
	case err == nil:
		return model.PublicUser{}, customErrors.NewAlreadyExists("user with email or username already exists")
	case !errors.Is(err, customErrors.ErrNotFound):
		return model.PublicUser{}, customErrors.WrapInternal(err, "Register")
	}

	if in.Avatar == nil || in.Avatar.LocalPath == "" {
		return model.PublicUser{}, customErrors.NewValidation("avatar is required", map[string]string{"avatar": "is required"})
	}

	passwordHash, err := a.hasher.Hash(in.Password)
	switch {
	case errors.Is(err, password.ErrPasswordTooLong):
		return model.PublicUser{}, customErrors.NewValidation("password is too long", map[string]string{"password": "is too long"})
	case err != nil:
		return model.PublicUser{}, customErrors.WrapInternal(err, "Register")
	}

	avatar, err := a.media.Upload(ctx, in.Avatar.LocalPath)
	if err != nil || avatar.URL == "" {
		a.log.Warn("avatar upload failed", zap.Error(err))
		return model.PublicUser{}, customErrors.NewValidation("avatar upload failed", map[string]string{"avatar": "upload failed"})
	}

	var coverURL string
	if in.CoverImage != nil && in.CoverImage.LocalPath != "" {
		cover, err := a.media.Upload(ctx, in.CoverImage.LocalPath)
		if err != nil {
			a.log.Warn("cover image upload failed, continuing without it", zap.Error(err))
		} else {
			coverURL = cover.URL
		}
	}

	user := model.User{
		ID:           uuid.New(),
		Username:     fields.Username,
		Email:        fields.Email,
		FullName:     fields.FullName,
		PasswordHash: passwordHash,
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
	}
	created, err := a.userRepo.Create(ctx, user)
	if err != nil {
		// uploaded assets stay on the media host; there is no cleanup path
		if errors.Is(err, customErrors.ErrAlreadyExists) {
			return model.PublicUser{}, customErrors.NewAlreadyExists("user with email or username already exists")
		}
		return model.PublicUser{}, customErrors.WrapInternal(err, "Register")
	}

	stored, err := a.userRepo.FindByID(ctx, created.ID)
	if err != nil {
		return model.PublicUser{}, customErrors.WrapInternal(err, "something went wrong while registering the user")
	}

	a.log.Info("user registered", zap.String("user_id", stored.ID.String()), log.Identity("email", stored.Email))
	return stored.Public(), nil
}

func (a *authService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	fields := loginFields{
		Email:    strings.TrimSpace(in.Email),
		Username: strings.ToLower(strings.TrimSpace(in.Username)),
		Password: strings.TrimSpace(in.Password),
	}
	if err := a.validate(fields, "username or email is required"); err != nil {
		return LoginResult{}, err
	}

	user, err := a.userRepo.FindByUsernameOrEmail(ctx, fields.Username, fields.Email)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return LoginResult{}, customErrors.NewNotFound("user does not exist")
	case err != nil:
		return LoginResult{}, customErrors.WrapInternal(err, "Login")
	}

	ok, err := a.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		return LoginResult{}, customErrors.NewInvalidCredentials("password incorrect")
	}

	pair, err := a.issueTokens(user, func(rt string) error {
		return a.userRepo.UpdateRefreshToken(ctx, user.ID, &rt)
	})
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{User: user.Public(), Tokens: pair}, nil
}

func (a *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := a.userRepo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		return customErrors.WrapInternal(err, "Logout")
	}
	return nil
}

func (a *authService) RevokeAccess(ctx context.Context, claims jwt.AccessClaims) {
	if a.tokenRepo == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	if err := a.tokenRepo.RevokeAccess(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		// the token still self-expires
		a.log.Warn("access token denylist write failed", zap.String("jti", claims.ID), zap.Error(err))
	}
}

func (a *authService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return model.TokenPair{}, customErrors.NewValidation("refresh token is required", map[string]string{"refreshToken": "is required"})
	}

	claims, err := a.jwtUtil.ValidateRefreshToken(refreshToken)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrInvalidToken
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrInvalidToken
	}
	user, err := a.userRepo.FindByID(ctx, uid)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.TokenPair{}, customErrors.ErrInvalidToken
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}

	// rotation: only the most recently issued refresh token is accepted
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return model.TokenPair{}, customErrors.ErrInvalidToken
	}

	return a.issueTokens(user, func(rt string) error {
		err := a.userRepo.RotateRefreshToken(ctx, user.ID, refreshToken, rt)
		if errors.Is(err, customErrors.ErrNotFound) {
			// a concurrent refresh or logout got there first
			return customErrors.ErrInvalidToken
		}
		return err
	})
}

func (a *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (model.PublicUser, error) {
	user, err := a.userRepo.FindByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.PublicUser{}, customErrors.NewNotFound("user does not exist")
	case err != nil:
		return model.PublicUser{}, customErrors.WrapInternal(err, "CurrentUser")
	}
	return user.Public(), nil
}

func (a *authService) Authenticate(ctx context.Context, accessToken string) (jwt.AccessClaims, error) {
	if accessToken == "" {
		return jwt.AccessClaims{}, customErrors.ErrInvalidToken
	}
	claims, err := a.jwtUtil.ValidateAccessToken(accessToken)
	if err != nil {
		return jwt.AccessClaims{}, customErrors.ErrInvalidToken
	}

	if a.tokenRepo != nil {
		revoked, err := a.tokenRepo.IsAccessRevoked(ctx, claims.ID)
		if err != nil {
			return jwt.AccessClaims{}, customErrors.WrapInternal(err, "Authenticate")
		}
		if revoked {
			return jwt.AccessClaims{}, customErrors.ErrInvalidToken
		}
	}
	return claims, nil
}

// issueTokens signs a new pair and hands the refresh token to store before
// returning it.
func (a *authService) issueTokens(user model.User, store func(refreshToken string) error) (model.TokenPair, error) {
	at, atExp, atJTI, err := a.jwtUtil.GenerateAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	rt, rtExp, _, err := a.jwtUtil.GenerateRefreshToken(user.ID)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateRefreshToken")
	}

	if err = store(rt); err != nil {
		if errors.Is(err, customErrors.ErrInvalidToken) {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "StoreRefresh")
	}

	now := a.now()
	return model.TokenPair{
		AccessToken:     at,
		RefreshToken:    rt,
		AccessTTL:       atExp.Sub(now),
		RefreshTTL:      rtExp.Sub(now),
		UserId:          user.ID,
		AccessTokenJTI:  atJTI,
		AccessExpiresAt: atExp,
	}, nil
}

// validate runs struct validation and converts failures into a per-field
// ValidationError keyed by the camelCase field name.
func (a *authService) validate(s any, msg string) error {
	err := a.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return customErrors.WrapInternal(err, "validate")
	}

	fields := make(map[string]string, len(ve))
	missing := false
	for _, fe := range ve {
		name := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = "is required"
			missing = true
		case "required_without":
			fields[name] = "username or email is required"
			missing = true
		case "email":
			fields[name] = "must be a valid email address"
		default:
			fields[name] = "is invalid"
		}
	}
	switch {
	case !missing:
		msg = "invalid input"
	case len(fields) == 1 && fields["password"] != "":
		msg = "password is required"
	}
	return customErrors.NewValidation(msg, fields)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
