package dto

import "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"

// RegisterForm mirrors the multipart text fields of POST /register.
// Files arrive separately as "avatar" and "coverImage".
type RegisterForm struct {
	FullName string `form:"fullName"`
	Email    string `form:"email"`
	Username string `form:"username"`
	Password string `form:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type VideoListQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type LoginResponse struct {
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}
