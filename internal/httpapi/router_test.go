package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authd"
	"github.com/MrEthical07/authd/internal/httpapi"
	promexport "github.com/MrEthical07/authd/metrics/export/prometheus"
	"github.com/MrEthical07/authd/middleware"
	"github.com/MrEthical07/authd/userstore/memory"
)

const password = "correct horse battery"

func init() {
	gin.SetMode(gin.TestMode)
}

type outbox struct {
	mu   sync.Mutex
	msgs []authd.Message
}

func (o *outbox) Send(_ context.Context, msg authd.Message) (authd.Delivery, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return authd.Delivery{ID: "msg"}, nil
}

var codeRe = regexp.MustCompile(`(?:/email/verify/|code=)([0-9a-f]+)`)

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs)
	m := codeRe.FindStringSubmatch(o.msgs[len(o.msgs)-1].Text)
	require.NotNil(t, m)
	return m[1]
}

type server struct {
	router *gin.Engine
	engine *authd.Engine
	outbox *outbox
}

func newServer(t *testing.T, opts httpapi.Options) *server {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := authd.DefaultConfig()
	cfg.AppName = "Acme"
	cfg.FrontendURL = "https://app.example.com"
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true

	box := &outbox{}
	engine, err := authd.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(memory.New()).
		WithNotifier(box).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &server{router: httpapi.NewRouter(engine, opts), engine: engine, outbox: box}
}

func (s *server) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "httpapi-test")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) signUp(t *testing.T, email string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"name": "Ada", "email": email, "password": password, "confirmPassword": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/v1/auth/email/verify/"+s.outbox.lastCode(t), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (s *server) signIn(t *testing.T, email string) map[string]*http.Cookie {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return cookieMap(w)
}

func cookieMap(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func jsonBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestRegisterAndDuplicate(t *testing.T) {
	s := newServer(t, httpapi.Options{})

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"name": "Ada", "email": "Ada@Example.com", "password": password, "confirmPassword": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := jsonBody(t, w)
	assert.Equal(t, "User created successfully.", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", data["email"])
	assert.Equal(t, false, data["verified"])
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"name": "Ada", "email": "ada@example.com", "password": password, "confirmPassword": password,
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(authd.CodeEmailAlreadyExists), jsonBody(t, w)["errorCode"])
}

func TestRegisterValidation(t *testing.T) {
	s := newServer(t, httpapi.Options{})

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"name": "Ada", "email": "not-an-email", "password": "short", "confirmPassword": "other",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Errors []struct {
			Path    string `json:"path"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	paths := map[string]string{}
	for _, e := range resp.Errors {
		paths[e.Path] = e.Message
	}
	assert.Equal(t, "Invalid email address.", paths["email"])
	assert.Equal(t, "password must be at least 8 characters.", paths["password"])
	assert.Equal(t, "Passwords do not match.", paths["confirmPassword"])
}

func TestMalformedBody(t *testing.T) {
	s := newServer(t, httpapi.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body.", jsonBody(t, w)["message"])
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	s := newServer(t, httpapi.Options{})
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"name": "Ada", "email": "ada@example.com", "password": password, "confirmPassword": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ada@example.com", "password": password})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(authd.CodeEmailNotVerified), jsonBody(t, w)["errorCode"])
	assert.Empty(t, cookieMap(w))
}

func TestLoginCookies(t *testing.T) {
	s := newServer(t, httpapi.Options{})
	s.signUp(t, "ada@example.com")
	cookies := s.signIn(t, "ada@example.com")

	access := cookies[middleware.AccessTokenCookie]
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, "/", access.Path)
	assert.Positive(t, access.MaxAge)

	refresh := cookies[middleware.RefreshTokenCookie]
	require.NotNil(t, refresh)
	assert.Equal(t, "/api/v1/auth/refresh", refresh.Path)
	assert.Greater(t, refresh.MaxAge, access.MaxAge)
}

func TestDevelopmentCookiesNotSecure(t *testing.T) {
	s := newServer(t, httpapi.Options{Development: true, BasePath: "/v2/"})
	s.do(t, http.MethodPost, "/v2/auth/register", gin.H{
		"name": "Ada", "email": "ada@example.com", "password": password, "confirmPassword": password,
	})
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v2/auth/email/verify", gin.H{"code": s.outbox.lastCode(t)}).Code)

	w := s.do(t, http.MethodPost, "/v2/auth/login", gin.H{"email": "ada@example.com", "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := cookieMap(w)
	assert.False(t, cookies[middleware.AccessTokenCookie].Secure)
	assert.Equal(t, "/v2/auth/refresh", cookies[middleware.RefreshTokenCookie].Path)
}

func TestSessionLifecycle(t *testing.T) {
	s := newServer(t, httpapi.Options{TrackIP: true})
	s.signUp(t, "ada@example.com")
	cookies := s.signIn(t, "ada@example.com")
	access := cookies[middleware.AccessTokenCookie]

	w := s.do(t, http.MethodGet, "/api/v1/user", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", jsonBody(t, w)["data"].(map[string]any)["email"])

	w = s.do(t, http.MethodGet, "/api/v1/sessions", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := jsonBody(t, w)["data"].([]any)
	require.Len(t, sessions, 1)
	assert.Equal(t, true, sessions[0].(map[string]any)["isCurrent"])

	w = s.do(t, http.MethodGet, "/api/v1/auth/refresh", nil, cookies[middleware.RefreshTokenCookie])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Your session has been successfully renewed.", jsonBody(t, w)["message"])
	renewed := cookieMap(w)[middleware.AccessTokenCookie]
	require.NotNil(t, renewed)
	assert.NotEmpty(t, renewed.Value)

	w = s.do(t, http.MethodGet, "/api/v1/auth/logout", nil, renewed)
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range cookieMap(w) {
		assert.Negative(t, c.MaxAge, c.Name)
	}

	w = s.do(t, http.MethodGet, "/api/v1/user", nil, renewed)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Session expired.", jsonBody(t, w)["message"])
}

func TestRevokeSession(t *testing.T) {
	s := newServer(t, httpapi.Options{})
	s.signUp(t, "ada@example.com")
	first := s.signIn(t, "ada@example.com")[middleware.AccessTokenCookie]
	second := s.signIn(t, "ada@example.com")[middleware.AccessTokenCookie]

	w := s.do(t, http.MethodDelete, "/api/v1/sessions/nope", nil, first)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Session not found.", jsonBody(t, w)["message"])

	p, err := s.engine.Authenticate(context.Background(), second.Value)
	require.NoError(t, err)

	w = s.do(t, http.MethodDelete, "/api/v1/sessions/"+p.SessionID, nil, first)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/user", nil, second)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshFailureClearsCookies(t *testing.T) {
	s := newServer(t, httpapi.Options{})

	w := s.do(t, http.MethodGet, "/api/v1/auth/refresh", nil,
		&http.Cookie{Name: middleware.RefreshTokenCookie, Value: "garbage"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(authd.CodeSessionExpired), jsonBody(t, w)["errorCode"])

	cookies := cookieMap(w)
	require.Contains(t, cookies, middleware.AccessTokenCookie)
	require.Contains(t, cookies, middleware.RefreshTokenCookie)
	assert.Equal(t, "/api/v1/auth/refresh", cookies[middleware.RefreshTokenCookie].Path)
	assert.Negative(t, cookies[middleware.RefreshTokenCookie].MaxAge)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t, httpapi.Options{})
	for _, path := range []string{"/api/v1/user", "/api/v1/sessions"} {
		w := s.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
		body := jsonBody(t, w)
		assert.Equal(t, "Authentication required.", body["message"])
		assert.Equal(t, string(authd.CodeInvalidAccessToken), body["errorCode"])
	}
}

func TestPasswordResetFlow(t *testing.T) {
	s := newServer(t, httpapi.Options{})
	s.signUp(t, "ada@example.com")
	access := s.signIn(t, "ada@example.com")[middleware.AccessTokenCookie]

	w := s.do(t, http.MethodPost, "/api/v1/auth/password/forgot", gin.H{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	code := s.outbox.lastCode(t)

	w = s.do(t, http.MethodPost, "/api/v1/auth/password/forgot", gin.H{"email": "ada@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	const next = "a brand new passphrase"
	w = s.do(t, http.MethodPost, "/api/v1/auth/password/reset", gin.H{
		"password": next, "confirmPassword": next, "code": code,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Password reset successful.", jsonBody(t, w)["message"])

	w = s.do(t, http.MethodGet, "/api/v1/user", nil, access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ada@example.com", "password": next})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyEmailRejectsUnknownCode(t *testing.T) {
	s := newServer(t, httpapi.Options{})

	w := s.do(t, http.MethodPost, "/api/v1/auth/email/verify", gin.H{"code": "deadbeef"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(authd.CodeInvalidOrExpiredVerificationCode), jsonBody(t, w)["errorCode"])

	w = s.do(t, http.MethodPost, "/api/v1/auth/email/verify/"+strings.Repeat("a", 25), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	var s *server
	reg := prometheus.NewPedanticRegistry()
	opts := httpapi.Options{Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	s = newServer(t, opts)
	reg.MustRegister(promexport.NewCollector(s.engine))

	w := s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", jsonBody(t, w)["status"])

	s.signUp(t, "ada@example.com")
	s.signIn(t, "ada@example.com")

	w = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "authd_login_success_total 1")
	assert.Contains(t, w.Body.String(), "authd_register_success_total 1")
}
