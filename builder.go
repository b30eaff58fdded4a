package authd

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/authd/internal/audit"
	"github.com/MrEthical07/authd/internal/stores"
	"github.com/MrEthical07/authd/jwt"
	"github.com/MrEthical07/authd/password"
	"github.com/MrEthical07/authd/session"
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at build time; logins for unknown emails
// compare against it so they cost the same as a wrong password.
const dummyPassword = "authd-timing-equalizer"

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserStore
	notifier  Notifier
	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing sessions and verification codes. Any
// go-redis client works: single node, cluster or ring.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithLogger sets the logger for soft failures such as undelivered
// verification emails. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source of the engine and its stores. Tests use
// it to step through expiry windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, ErrRedisRequired
	}
	if b.users == nil {
		return nil, ErrUserStoreRequired
	}
	if b.notifier == nil {
		return nil, ErrNotifierRequired
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Leeway:        cfg.JWT.Leeway,
		Audience:      cfg.JWT.Audience,
		Issuer:        cfg.JWT.Issuer,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewBcrypt(password.Config{Cost: cfg.Password.BcryptCost})
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		notifier: b.notifier,
		logger:   logger,
		now:      now,
		tokens:   tokens,
		hasher:   hasher,
		sessions: session.NewStore(b.redis, session.StoreConfig{
			Prefix: cfg.Session.RedisPrefix,
			Now:    now,
		}),
		ledger: stores.NewVerificationLedger(b.redis, stores.LedgerConfig{
			Prefix:          cfg.Verification.RedisPrefix,
			RecentRetention: max(cfg.Policy.PasswordResetWindow, time.Hour),
			Now:             now,
		}),
		dummyHash: dummyHash,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}
	engine.flows = engine.buildFlows()

	b.built = true

	return engine, nil
}
