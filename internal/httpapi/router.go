package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MrEthical07/authd"
	"github.com/MrEthical07/authd/middleware"
)

// Engine is the subset of *authd.Engine the HTTP layer calls.
type Engine interface {
	middleware.Authenticator
	Register(ctx context.Context, req authd.RegisterRequest) (authd.PublicUser, error)
	Login(ctx context.Context, req authd.LoginRequest) (authd.LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (authd.RefreshResult, error)
	VerifyEmail(ctx context.Context, code string) (authd.PublicUser, error)
	SendPasswordReset(ctx context.Context, req authd.PasswordResetRequest) error
	ResetPassword(ctx context.Context, req authd.ResetPasswordRequest) (authd.PublicUser, error)
	GetUser(ctx context.Context, userID string) (authd.PublicUser, error)
	ListSessions(ctx context.Context, userID, currentSessionID string) ([]authd.SessionView, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	Ping(ctx context.Context) (time.Duration, error)
}

type Options struct {
	// BasePath prefixes every API route. Defaults to /api/v1.
	BasePath string
	// Development drops the Secure flag from cookies.
	Development bool
	// TrackIP records the caller's IP on every authenticated request.
	TrackIP bool
	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	Logger      *slog.Logger
}

type handlers struct {
	engine  Engine
	cookies cookiePolicy
	logger  *slog.Logger
}

// NewRouter builds the gin engine serving the auth API.
func NewRouter(engine Engine, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := "/" + strings.Trim(opts.BasePath, "/")
	if opts.BasePath == "" {
		base = "/api/v1"
	}

	h := &handlers{
		engine:  engine,
		cookies: newCookiePolicy(base, !opts.Development),
		logger:  logger,
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.RequestContext(),
	)

	r.GET("/healthz", h.health)
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(opts.Metrics))
	}

	api := r.Group(base)

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.GET("/logout", h.logout)
	auth.GET("/refresh", h.refresh)
	auth.POST("/email/verify", h.verifyEmail)
	auth.POST("/email/verify/:code", h.verifyEmail)
	auth.POST("/password/forgot", h.forgotPassword)
	auth.POST("/password/reset", h.resetPassword)

	protected := api.Group("", middleware.Authenticate(engine, middleware.Options{
		TrackIP: opts.TrackIP,
		OnError: h.fail,
	}))
	protected.GET("/user", h.currentUser)
	protected.GET("/sessions", h.listSessions)
	protected.DELETE("/sessions/:id", h.revokeSession)

	return r
}

func (h *handlers) health(c *gin.Context) {
	latency, err := h.engine.Ping(c.Request.Context())
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redisLatencyMs": latency.Milliseconds()})
}
