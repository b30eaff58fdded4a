package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/MrEthical07/authd"
	"github.com/MrEthical07/authd/internal/config"
	"github.com/MrEthical07/authd/internal/logging"
	"github.com/MrEthical07/authd/notify"
	"github.com/MrEthical07/authd/userstore/postgres"
)

const serviceName = "authd"

// deps is everything a command needs to run the engine.
type deps struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *authd.Engine
	pool   *pgxpool.Pool
	redis  *redis.Client
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("path", configFile).Wrap(err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("field", "log.level").Wrap(err)
	}
	logger := logging.Setup(serviceName, version, cfg.Log.Format, level, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openDeps(ctx context.Context) (*deps, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, err
	}

	b := authd.New().
		WithConfig(cfg.Engine).
		WithRedis(rdb).
		WithUserStore(postgres.New(pool)).
		WithNotifier(notifier).
		WithLogger(logger)
	if cfg.Engine.Audit.Enabled {
		b.WithAuditSink(authd.NewSlogSink(logger.With("component", "audit")))
	}
	engine, err := b.Build()
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, oops.Code("ENGINE_INIT_FAILED").Wrap(err)
	}

	return &deps{cfg: cfg, logger: logger, engine: engine, pool: pool, redis: rdb}, nil
}

func (d *deps) Close() {
	d.engine.Close()
	_ = d.redis.Close()
	d.pool.Close()
}

// newNotifier sends through Resend when an API key is configured. Without
// one, development builds log messages instead and other environments fail.
func newNotifier(cfg *config.Config, logger *slog.Logger) (authd.Notifier, error) {
	if cfg.Email.ResendAPIKey == "" {
		if cfg.Development() {
			logger.Warn("no resend api key, emails are logged only")
			return notify.NewLogSender(logger), nil
		}
		return nil, oops.Code("CONFIG_INVALID").With("field", "email.resend_api_key").Errorf("resend api key is required outside development")
	}
	sender, err := notify.NewResendSender(notify.ResendConfig{
		APIKey:  cfg.Email.ResendAPIKey,
		From:    cfg.Email.Sender,
		AppName: cfg.Engine.AppName,
		Sandbox: cfg.Development(),
	})
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("field", "email").Wrap(err)
	}
	return sender, nil
}
