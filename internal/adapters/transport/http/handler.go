package http

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/response"
	appsvc "github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/service"
	authErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CookieOptions struct {
	Domain string
	Secure bool
}

type Handler struct {
	auth      appsvc.Service
	videos    appsvc.VideoService
	cookies   CookieOptions
	uploadDir string
	log       *zap.Logger
}

func NewHandler(auth appsvc.Service, videos appsvc.VideoService, cookies CookieOptions, uploadDir string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{auth: auth, videos: videos, cookies: cookies, uploadDir: uploadDir, log: log.Named("http")}
}

// Routes mounts the user endpoints under /api/v1/users.
func (h *Handler) Routes(r gin.IRouter) {
	users := r.Group("/api/v1/users")
	users.POST("/register", h.register)
	users.POST("/login", h.login)
	users.POST("/refresh-token", h.refresh)
	users.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
	users.GET("/current-user", middleware.RequireAuth(h.auth), h.currentUser)
	users.GET("/:id/videos", middleware.OptionalAuth(h.auth), h.channelVideos)
}

func (h *Handler) register(c *gin.Context) {
	var form dto.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		metrics.AuthEventsTotal.WithLabelValues("register", "bad_request").Inc()
		response.Error(c, authErrors.NewInvalidArgument("malformed form"))
		return
	}

	avatar, err := h.stage(c, "avatar")
	if err != nil {
		response.Error(c, err)
		return
	}
	cover, err := h.stage(c, "coverImage")
	if err != nil {
		h.removeStaged(avatar)
		response.Error(c, err)
		return
	}
	// staged files are removed whatever the outcome
	defer h.removeStaged(avatar)
	defer h.removeStaged(cover)

	user, err := h.auth.Register(c.Request.Context(), appsvc.RegisterInput{
		FullName:   form.FullName,
		Email:      form.Email,
		Username:   form.Username,
		Password:   form.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("register", outcome(err)).Inc()
		response.Error(c, err)
		return
	}
	metrics.AuthEventsTotal.WithLabelValues("register", "ok").Inc()
	response.OK(c, http.StatusCreated, user, "user registered successfully")
}

func (h *Handler) login(c *gin.Context) {
	var body dto.LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.AuthEventsTotal.WithLabelValues("login", "bad_request").Inc()
		response.Error(c, authErrors.NewInvalidArgument("malformed request body"))
		return
	}

	res, err := h.auth.Login(c.Request.Context(), appsvc.LoginInput{
		Email:    body.Email,
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("login", outcome(err)).Inc()
		response.Error(c, err)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("login", "ok").Inc()
	h.setTokenCookies(c, res.Tokens)
	response.OK(c, http.StatusOK, dto.LoginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "user logged in successfully")
}

func (h *Handler) logout(c *gin.Context) {
	uid, _ := middleware.UserID(c)
	if err := h.auth.Logout(c.Request.Context(), uid); err != nil {
		metrics.AuthEventsTotal.WithLabelValues("logout", outcome(err)).Inc()
		response.Error(c, err)
		return
	}
	if claims, ok := middleware.Claims(c); ok {
		h.auth.RevokeAccess(c.Request.Context(), claims)
	}

	metrics.AuthEventsTotal.WithLabelValues("logout", "ok").Inc()
	h.clearTokenCookies(c)
	response.OK(c, http.StatusOK, gin.H{}, "user logged out")
}

func (h *Handler) refresh(c *gin.Context) {
	token, _ := c.Cookie(middleware.RefreshTokenCookie)
	if token == "" {
		var body dto.RefreshRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				response.Error(c, authErrors.NewInvalidArgument("malformed request body"))
				return
			}
		}
		token = body.RefreshToken
	}

	pair, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("refresh", outcome(err)).Inc()
		response.Error(c, err)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("refresh", "ok").Inc()
	h.setTokenCookies(c, pair)
	response.OK(c, http.StatusOK, dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(pair.AccessTTL.Seconds()),
	}, "access token refreshed")
}

func (h *Handler) currentUser(c *gin.Context) {
	uid, _ := middleware.UserID(c)
	user, err := h.auth.CurrentUser(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, user, "current user fetched successfully")
}

func (h *Handler) channelVideos(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, authErrors.NewValidation("invalid channel id", map[string]string{"id": "must be a uuid"}))
		return
	}
	var q dto.VideoListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, authErrors.NewValidation("invalid pagination", map[string]string{"page": "must be a number", "limit": "must be a number"}))
		return
	}

	viewer, _ := middleware.UserID(c)
	page, err := h.videos.ListChannelVideos(c.Request.Context(), ownerID, viewer, q.Page, q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, page, "videos fetched successfully")
}

// stage saves a multipart file to the upload directory. A missing field
// yields nil; the service decides whether it was required.
func (h *Handler) stage(c *gin.Context, field string) (*appsvc.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, authErrors.NewValidation("malformed upload", map[string]string{field: "could not be read"})
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, authErrors.WrapInternal(err, "stage upload")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return nil, authErrors.WrapInternal(err, "stage upload")
	}
	metrics.MediaUploadBytes.Observe(float64(fh.Size))
	return &appsvc.Upload{LocalPath: dst, Filename: fh.Filename}, nil
}

func (h *Handler) removeStaged(u *appsvc.Upload) {
	if u == nil || u.LocalPath == "" {
		return
	}
	if err := os.Remove(u.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.log.Warn("failed to remove staged upload", zap.String("path", u.LocalPath), zap.Error(err))
	}
}

func (h *Handler) setTokenCookies(c *gin.Context, pair model.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, int(pair.AccessTTL.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.RefreshTokenCookie, pair.RefreshToken, int(pair.RefreshTTL.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *Handler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}

func outcome(err error) string {
	switch response.StatusFor(err) {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	default:
		return "error"
	}
}
