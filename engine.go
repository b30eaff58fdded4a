package authd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/authd/internal/audit"
	internalflows "github.com/MrEthical07/authd/internal/flows"
	"github.com/MrEthical07/authd/internal/stores"
	"github.com/MrEthical07/authd/jwt"
	"github.com/MrEthical07/authd/password"
	"github.com/MrEthical07/authd/session"
)

// Engine runs the credential and session flows. It is built once by Builder
// and safe for concurrent use.
type Engine struct {
	config   Config
	users    UserStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	tokens    *jwt.Manager
	hasher    *password.Bcrypt
	sessions  *session.Store
	ledger    *stores.VerificationLedger
	dummyHash string

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	flows   internalflows.Service
}

// Close flushes pending audit events and stops the dispatcher. The Redis
// client and user store belong to the caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped because the buffer
// was full or the caller's context ended first.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the validated configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Ping checks Redis and returns its round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return e.sessions.Ping(ctx)
}

// GetUser returns the public projection of the user with the given id.
func (e *Engine) GetUser(ctx context.Context, userID string) (PublicUser, error) {
	if err := e.ready(); err != nil {
		return PublicUser{}, err
	}
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return PublicUser{}, e.userLookupError(err)
	}
	return user.Public(), nil
}

func (e *Engine) ready() error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return nil
}

func isUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// committedUser reloads userID after a flow has already persisted its
// changes. A failed reload is logged and yields fallback rather than an error.
func (e *Engine) committedUser(ctx context.Context, userID string, fallback PublicUser) PublicUser {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		e.logger.Warn("authd: reload user after commit failed", "user_id", userID, "error", err)
		return fallback
	}
	return user.Public()
}

func (e *Engine) userLookupError(err error) error {
	if isUserNotFound(err) {
		return ErrAccountNotFound.with(err)
	}
	return internalError(err)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) observeSince(id MetricID, start time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

// checkPassword rejects passwords bcrypt cannot hash before any code is
// consumed or record written.
func checkPassword(plain string) error {
	if plain == "" || len(plain) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func requestIP(ctx context.Context, ip string) string {
	if ip != "" {
		return ip
	}
	return clientIPFromContext(ctx)
}

func requestUserAgent(ctx context.Context, userAgent string) string {
	if userAgent != "" {
		return userAgent
	}
	return userAgentFromContext(ctx)
}
