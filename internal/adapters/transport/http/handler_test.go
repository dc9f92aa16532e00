package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/db/memory"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/storage"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/password"
	appsvc "github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	keyOnce sync.Once
	rsaKey  *rsa.PrivateKey
)

type envelope struct {
	Status  int               `json:"status"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors"`
}

type testServer struct {
	router    *gin.Engine
	users     *memory.UserRepo
	videos    *memory.VideoRepo
	uploadDir string
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		rsaKey = k
	})
	util, err := jwt.NewJWTUtilFromKeys(rsaKey, &rsaKey.PublicKey, jwt.Options{
		AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "test", Audience: "test",
	})
	require.NoError(t, err)

	resolver, err := storage.NewLocalResolver(t.TempDir(), "users", "http://cdn.test/media")
	require.NoError(t, err)

	hasher := password.NewBcrypt("pepper")

	users := memory.NewUserRepo()
	videos := memory.NewVideoRepo()
	svc := appsvc.New(users, memory.NewTokenRepo(), hasher, util, resolver, validator.New(), nil)

	uploadDir := t.TempDir()
	h := NewHandler(svc, appsvc.NewVideoService(users, videos), CookieOptions{Secure: true}, uploadDir, nil)

	r := gin.New()
	h.Routes(r)
	return testServer{router: r, users: users, videos: videos, uploadDir: uploadDir}
}

func (s testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func registerRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"fullName": "Ann Lee",
		"email":    "ann@example.com",
		"username": "AnnL",
		"password": "s3cret!",
	}
}

func jsonRequest(method, path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s testServer) register(t *testing.T) model.PublicUser {
	t.Helper()
	w, env := s.do(t, registerRequest(t, validFields(), map[string]string{"avatar": "me.png"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u model.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u
}

func (s testServer) login(t *testing.T) (*http.Cookie, *http.Cookie) {
	t.Helper()
	w, _ := s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "annl", "password": "s3cret!",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return cookieByName(w, middleware.AccessTokenCookie), cookieByName(w, middleware.RefreshTokenCookie)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, registerRequest(t, validFields(), map[string]string{"avatar": "me.png", "coverImage": "bg.jpg"}))
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)

	var u model.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &u))
	require.Equal(t, "annl", u.Username)
	require.True(t, strings.HasPrefix(u.Avatar, "http://cdn.test/media/users/"))
	require.True(t, strings.HasSuffix(u.CoverImage, ".jpg"))
	require.NotContains(t, string(env.Data), "password")
	require.NotContains(t, string(env.Data), "refreshToken")

	left, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	require.Empty(t, left, "staged uploads are removed")
}

func TestRegister_Conflict(t *testing.T) {
	s := newTestServer(t)
	s.register(t)

	w, env := s.do(t, registerRequest(t, validFields(), map[string]string{"avatar": "me.png"}))
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "user with email or username already exists", env.Message)

	left, _ := os.ReadDir(s.uploadDir)
	require.Empty(t, left)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, registerRequest(t, validFields(), nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, env.Errors, "avatar")

	fields := validFields()
	fields["email"] = "  "
	w, env = s.do(t, registerRequest(t, fields, map[string]string{"avatar": "me.png"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "is required", env.Errors["email"])

	_, err := s.users.FindByUsernameOrEmail(context.Background(), "annl", "")
	require.Error(t, err)
}

func TestLogin_SetsCookies(t *testing.T) {
	s := newTestServer(t)
	s.register(t)

	w, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email": "ann@example.com", "password": "s3cret!",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		User         model.PublicUser `json:"user"`
		AccessToken  string           `json:"accessToken"`
		RefreshToken string           `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Equal(t, "annl", body.User.Username)
	require.NotEmpty(t, body.AccessToken)

	access := cookieByName(w, middleware.AccessTokenCookie)
	refresh := cookieByName(w, middleware.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	require.True(t, access.HttpOnly)
	require.True(t, access.Secure)
	require.Equal(t, http.SameSiteLaxMode, access.SameSite)
	require.Equal(t, http.SameSiteStrictMode, refresh.SameSite)
	require.Equal(t, body.AccessToken, access.Value)
	require.Equal(t, body.RefreshToken, refresh.Value)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	s.register(t)

	w, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "annl", "password": "wrong",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "password incorrect", env.Message)
	require.Nil(t, cookieByName(w, middleware.AccessTokenCookie))

	w, env = s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "ghost", "password": "x",
	}))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "user does not exist", env.Message)

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"password": "x"}))
	require.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w, _ = s.do(t, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurrentUserAndLogout(t *testing.T) {
	s := newTestServer(t)
	u := s.register(t)
	access, refresh := s.login(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.AddCookie(access)
	w, env := s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, u.ID, got.ID)

	w, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access.Value)
	w, _ = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := cookieByName(w, middleware.AccessTokenCookie)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.True(t, cleared.MaxAge < 0)

	stored, err := s.users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.RefreshToken)

	// the revoked access token no longer authenticates
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.AddCookie(access)
	w, _ = s.do(t, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(refresh)
	w, _ = s.do(t, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)
	s.register(t)
	_, refresh := s.login(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(refresh)
	w, env := s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)

	var tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	require.NotEqual(t, refresh.Value, tokens.RefreshToken)
	require.Equal(t, tokens.RefreshToken, cookieByName(w, middleware.RefreshTokenCookie).Value)

	// the JSON body works too, and the rotated-out token is rejected
	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": refresh.Value}))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": tokens.RefreshToken}))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChannelVideos(t *testing.T) {
	s := newTestServer(t)
	u := s.register(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.videos.Create(ctx, model.Video{
			OwnerID: u.ID, Title: "v", IsPublished: i != 0,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	w, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/"+u.ID.String()+"/videos?page=1&limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var page model.Page[model.Video]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	require.True(t, page.HasNext)

	access, _ := s.login(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+u.ID.String()+"/videos", nil)
	req.AddCookie(access)
	w, env = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.EqualValues(t, 3, page.Total, "owner sees unpublished videos")

	w, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/not-a-uuid/videos", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/"+uuid.NewString()+"/videos", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/"+u.ID.String()+"/videos?page=abc", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	s := newTestServer(t)

	fields := validFields()
	fields["password"] = strings.Repeat("p", 80)
	w, env := s.do(t, registerRequest(t, fields, map[string]string{"avatar": "me.png"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "is too long", env.Errors["password"])
}

func TestChannelVideos_HugePage(t *testing.T) {
	s := newTestServer(t)
	u := s.register(t)
	_, err := s.videos.Create(context.Background(), model.Video{OwnerID: u.ID, Title: "v", IsPublished: true})
	require.NoError(t, err)

	w, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/"+u.ID.String()+"/videos?page=92233720368547760&limit=100", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var page model.Page[model.Video]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Empty(t, page.Items)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, model.MaxPage, page.Page)
}
