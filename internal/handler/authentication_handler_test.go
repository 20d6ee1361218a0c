package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"session-web-server/config"
	"session-web-server/internal/apperrors"
	"session-web-server/internal/handler"
	"session-web-server/internal/model"
	"session-web-server/internal/security"
	"session-web-server/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== FAKES =====

// memoryUserRepo - хранилище пользователей в памяти
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // ключ - UUID
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*model.User{}}
}

func (r *memoryUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, fmt.Errorf("%w: email %s занят", apperrors.ErrConflict, user.Email)
		}
	}
	copied := *user
	copied.CreatedAt = time.Now()
	r.users[user.UUID] = &copied
	result := copied
	return &result, nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: пользователь по email", apperrors.ErrNotFound)
}

func (r *memoryUserRepo) FindByUUID(_ context.Context, uuid string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[uuid]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, fmt.Errorf("%w: пользователь %s", apperrors.ErrNotFound, uuid)
}

func (r *memoryUserRepo) UpdateRefreshHash(_ context.Context, uuid string, refreshHash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[uuid]
	if !ok {
		return fmt.Errorf("%w: пользователь %s", apperrors.ErrNotFound, uuid)
	}
	user.RefreshTokenHash = refreshHash
	return nil
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, uuid string, newPasswordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[uuid]
	if !ok {
		return fmt.Errorf("%w: пользователь %s", apperrors.ErrNotFound, uuid)
	}
	user.PasswordHash = newPasswordHash
	return nil
}

// memoryResetCache - одноразовость reset токенов в памяти
type memoryResetCache struct {
	mu   sync.Mutex
	used map[string]bool
}

func newMemoryResetCache() *memoryResetCache {
	return &memoryResetCache{used: map[string]bool{}}
}

func (c *memoryResetCache) MarkUsed(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl <= 0 || c.used[jti] {
		return false, nil
	}
	c.used[jti] = true
	return true, nil
}

type channelNotifier struct {
	sent chan string
}

func (n *channelNotifier) SendResetToken(_ string, resetToken string) error {
	n.sent <- resetToken
	return nil
}

// ===== TEST SERVER =====

// testServer собирает полный стек авторизации: реальные guard-ы,
// кодек и оркестратор поверх хранилищ в памяти
type testServer struct {
	router   *chi.Mux
	notifier *channelNotifier
	// cookies эмулирует cookie jar клиента
	cookies map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	jwtService, err := security.NewJWTService(&config.JWTConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		ResetSecret:     "reset-secret",
		CryptoSecret:    "crypto-secret",
		AccessTokenTTL:  "15m",
		RefreshTokenTTL: "168h",
		ResetTokenTTL:   "15m",
	})
	require.NoError(t, err)

	csrfService, err := security.NewCSRFService(&config.CSRFConfig{
		Secret:   "csrf-secret",
		TokenTTL: "1h",
	})
	require.NoError(t, err)

	hasher := security.NewRefreshHasher("crypto-secret")
	userRepo := newMemoryUserRepo()
	notifier := &channelNotifier{sent: make(chan string, 1)}

	authService := service.NewAuthenticationService(userRepo, jwtService, hasher, newMemoryResetCache(), notifier)
	authHandler := handler.NewAuthenticationHandler(authService, csrfService, 168*time.Hour)

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		r.Put("/register", authHandler.Register)
		r.Get("/csrf-token", authHandler.GetCSRFToken)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(security.LocalCredentialGuard(userRepo))
			r.Post("/sign-in", authHandler.SignIn)
		})

		r.Group(func(r chi.Router) {
			r.Use(security.CSRFGuard(csrfService))
			r.Use(security.RefreshGuard(jwtService, hasher, userRepo))
			r.Get("/verify-token", authHandler.VerifyToken)
			r.Post("/sign-out", authHandler.SignOut)
		})

		r.Group(func(r chi.Router) {
			r.Use(security.AccessGuard(jwtService))
			r.Get("/me", authHandler.GetCurrentUser)
		})
	})

	return &testServer{
		router:   router,
		notifier: notifier,
		cookies:  map[string]string{},
	}
}

// do выполняет запрос, пробрасывая накопленные cookie
// и забирая Set-Cookie из ответа
func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}

	request := httptest.NewRequest(method, path, reader)
	for name, value := range s.cookies {
		request.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	for name, value := range headers {
		request.Header.Set(name, value)
	}

	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, request)

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(s.cookies, cookie.Name)
		} else {
			s.cookies[cookie.Name] = cookie.Value
		}
	}

	return recorder
}

func (s *testServer) accessToken(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func (s *testServer) fetchCSRF(t *testing.T) string {
	t.Helper()

	recorder := s.do(t, http.MethodGet, "/api/auth/csrf-token", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// ===== СЦЕНАРИЙ ЖИЗНЕННОГО ЦИКЛА =====

// register -> sign-in -> refresh (старый токен гаснет) ->
// sign-out (новый токен гаснет) -> refresh отвергается
func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// регистрация сразу выполняет вход
	recorder := srv.do(t, http.MethodPut, "/api/auth/register",
		`{"email":"alice@example.com","password":"GoodP@ss1"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	accessOne := srv.accessToken(t, recorder)
	require.NotEmpty(t, srv.cookies[security.RefreshCookieName])

	// refresh токен приходит только в HttpOnly cookie, не в теле
	assert.NotContains(t, recorder.Body.String(), srv.cookies[security.RefreshCookieName])
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == security.RefreshCookieName {
			assert.True(t, cookie.HttpOnly)
			assert.True(t, cookie.Secure)
		}
	}

	// повторный вход по паролю
	recorder = srv.do(t, http.MethodPost, "/api/auth/sign-in",
		`{"email":"alice@example.com","password":"GoodP@ss1"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	refreshOne := srv.cookies[security.RefreshCookieName]

	// ротация: новая пара, cookie меняется
	csrf := srv.fetchCSRF(t)
	recorder = srv.do(t, http.MethodGet, "/api/auth/verify-token", "",
		map[string]string{security.CSRFHeaderName: csrf})
	require.Equal(t, http.StatusOK, recorder.Code)
	accessTwo := srv.accessToken(t, recorder)
	refreshTwo := srv.cookies[security.RefreshCookieName]
	assert.NotEqual(t, accessOne, accessTwo)
	assert.NotEqual(t, refreshOne, refreshTwo)

	// только что использованный refresh токен больше не проходит
	srv.cookies[security.RefreshCookieName] = refreshOne
	recorder = srv.do(t, http.MethodGet, "/api/auth/verify-token", "",
		map[string]string{security.CSRFHeaderName: csrf})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// выход с актуальным токеном
	srv.cookies[security.RefreshCookieName] = refreshTwo
	recorder = srv.do(t, http.MethodPost, "/api/auth/sign-out", "",
		map[string]string{security.CSRFHeaderName: csrf})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, srv.cookies[security.RefreshCookieName], "refresh cookie должна быть очищена")

	// после выхода даже последний выданный токен не проходит
	srv.cookies[security.RefreshCookieName] = refreshTwo
	recorder = srv.do(t, http.MethodGet, "/api/auth/verify-token", "",
		map[string]string{security.CSRFHeaderName: csrf})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

// CSRF и сессионные токены независимы: валидная сессия без CSRF - 403,
// валидный CSRF без сессии - 401
func TestCSRFIndependence(t *testing.T) {
	srv := newTestServer(t)

	recorder := srv.do(t, http.MethodPut, "/api/auth/register",
		`{"email":"alice@example.com","password":"GoodP@ss1"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	// refresh cookie есть, CSRF нет
	recorder = srv.do(t, http.MethodGet, "/api/auth/verify-token", "", nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// CSRF есть, refresh cookie нет
	csrf := srv.fetchCSRF(t)
	refresh := srv.cookies[security.RefreshCookieName]
	delete(srv.cookies, security.RefreshCookieName)
	recorder = srv.do(t, http.MethodGet, "/api/auth/verify-token", "",
		map[string]string{security.CSRFHeaderName: csrf})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// полная пара проходит
	srv.cookies[security.RefreshCookieName] = refresh
	recorder = srv.do(t, http.MethodGet, "/api/auth/verify-token", "",
		map[string]string{security.CSRFHeaderName: csrf})
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRegisterConflict(t *testing.T) {
	srv := newTestServer(t)

	recorder := srv.do(t, http.MethodPut, "/api/auth/register",
		`{"email":"alice@example.com","password":"GoodP@ss1"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = srv.do(t, http.MethodPut, "/api/auth/register",
		`{"email":"alice@example.com","password":"GoodP@ss1"}`, nil)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestCurrentUser(t *testing.T) {
	srv := newTestServer(t)

	recorder := srv.do(t, http.MethodPut, "/api/auth/register",
		`{"email":"alice@example.com","password":"GoodP@ss1"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	access := srv.accessToken(t, recorder)

	recorder = srv.do(t, http.MethodGet, "/api/auth/me", "",
		map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Response struct {
			UserUUID string `json:"user_uuid"`
			Email    string `json:"email"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "alice@example.com", resp.Response.Email)
	assert.NotEmpty(t, resp.Response.UserUUID)

	recorder = srv.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

// ветка восстановления пароля: письмо -> смена пароля ->
// старые сессии и повторное использование токена отвергаются
func TestPasswordResetFlow(t *testing.T) {
	srv := newTestServer(t)

	recorder := srv.do(t, http.MethodPut, "/api/auth/register",
		`{"email":"alice@example.com","password":"GoodP@ss1"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	refresh := srv.cookies[security.RefreshCookieName]

	// неизвестный email получает тот же ответ, что и известный
	recorder = srv.do(t, http.MethodPost, "/api/auth/forgot-password",
		`{"email":"ghost@example.com"}`, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = srv.do(t, http.MethodPost, "/api/auth/forgot-password",
		`{"email":"alice@example.com"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resetToken string
	select {
	case resetToken = <-srv.notifier.sent:
	case <-time.After(time.Second):
		t.Fatal("письмо восстановления не было отправлено")
	}

	body := fmt.Sprintf(`{"token":%q,"new_password":"N3wP@ssword1"}`, resetToken)
	recorder = srv.do(t, http.MethodPost, "/api/auth/reset-password", body, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	// смена пароля завершает все сессии
	csrf := srv.fetchCSRF(t)
	srv.cookies[security.RefreshCookieName] = refresh
	recorder = srv.do(t, http.MethodGet, "/api/auth/verify-token", "",
		map[string]string{security.CSRFHeaderName: csrf})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// старый пароль не работает, новый работает
	recorder = srv.do(t, http.MethodPost, "/api/auth/sign-in",
		`{"email":"alice@example.com","password":"GoodP@ss1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = srv.do(t, http.MethodPost, "/api/auth/sign-in",
		`{"email":"alice@example.com","password":"N3wP@ssword1"}`, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// reset токен одноразовый
	recorder = srv.do(t, http.MethodPost, "/api/auth/reset-password", body, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
