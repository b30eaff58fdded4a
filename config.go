package authd

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/authd/jwt"
	"github.com/robfig/cron/v3"
)

// Config is the complete engine configuration. Build a value with
// DefaultConfig, override fields, and pass it to Builder.WithConfig. The
// engine keeps its own copy; later mutation of the caller's value has no
// effect.
type Config struct {
	// AppName appears in outbound email subjects and bodies.
	AppName string
	// FrontendURL is the base for links embedded in emails.
	FrontendURL string

	JWT          JWTConfig
	Session      SessionConfig
	Verification VerificationConfig
	Password     PasswordConfig
	Policy       PolicyConfig
	IPHistory    IPHistoryConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing. Access and refresh tokens are signed
// with distinct HS256 secrets. RefreshTTL is also the session lifetime.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	Audience      string
	Issuer        string
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	RedisPrefix string
	// RenewalThreshold is the remaining lifetime at or below which a refresh
	// rolls the session and issues a new refresh token.
	RenewalThreshold time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

type VerificationConfig struct {
	RedisPrefix      string
	EmailTTL         time.Duration
	PasswordResetTTL time.Duration
}

type PasswordConfig struct {
	BcryptCost int
}

// PolicyConfig holds behavioural switches of the auth flows.
type PolicyConfig struct {
	RequireVerifiedEmail      bool
	TrackIPPerRequest         bool
	RequireOldPasswordOnReset bool
	PasswordResetWindow       time.Duration
	PasswordResetMaxPerWindow int
}

type IPHistoryConfig struct {
	// RetentionLimit caps the number of entries kept per user. Zero or less
	// keeps every entry.
	RetentionLimit   int
	CleanupBatchSize int
	// CleanupSchedule is a standard five-field cron expression.
	CleanupSchedule string
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const (
	defaultAccessTTL             = 15 * time.Minute
	defaultRefreshTTL            = 30 * 24 * time.Hour
	defaultRenewalThreshold      = 24 * time.Hour
	defaultEmailVerificationTTL  = 45 * time.Minute
	defaultPasswordResetTTL      = 15 * time.Minute
	defaultPasswordResetWindow   = 5 * time.Minute
	defaultIPRetentionLimit      = 10
	defaultIPCleanupBatchSize    = 500
	defaultIPCleanupSchedule     = "0 0 * * *"
	maxVerificationTTL           = 7 * 24 * time.Hour
	maxLeeway                    = 2 * time.Minute
	minBcryptCost                = 4
	maxBcryptCost                = 31
	defaultBcryptCost            = 10
	defaultAuditBufferSize       = 1024
	defaultSessionRedisPrefix    = "as"
	defaultVerificationKeyPrefix = "avc"
	defaultAppName               = "authd"
	defaultFrontendURL           = "http://localhost:3000"
)

// DefaultConfig returns a configuration with every field set to its default
// except the JWT secrets, which the caller must supply.
func DefaultConfig() Config {
	return Config{
		AppName:     defaultAppName,
		FrontendURL: defaultFrontendURL,
		JWT: JWTConfig{
			AccessTTL:  defaultAccessTTL,
			RefreshTTL: defaultRefreshTTL,
			Audience:   jwt.DefaultAudience,
		},
		Session: SessionConfig{
			RedisPrefix:      defaultSessionRedisPrefix,
			RenewalThreshold: defaultRenewalThreshold,
		},
		Verification: VerificationConfig{
			RedisPrefix:      defaultVerificationKeyPrefix,
			EmailTTL:         defaultEmailVerificationTTL,
			PasswordResetTTL: defaultPasswordResetTTL,
		},
		Password: PasswordConfig{
			BcryptCost: defaultBcryptCost,
		},
		Policy: PolicyConfig{
			RequireVerifiedEmail:      true,
			TrackIPPerRequest:         false,
			RequireOldPasswordOnReset: false,
			PasswordResetWindow:       defaultPasswordResetWindow,
			PasswordResetMaxPerWindow: 1,
		},
		IPHistory: IPHistoryConfig{
			RetentionLimit:   defaultIPRetentionLimit,
			CleanupBatchSize: defaultIPCleanupBatchSize,
			CleanupSchedule:  defaultIPCleanupSchedule,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: defaultAuditBufferSize,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration problem found, or nil.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT AccessSecret must be at least %d bytes", jwt.MinSecretLength)
	}
	if len(c.JWT.RefreshSecret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT RefreshSecret must be at least %d bytes", jwt.MinSecretLength)
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL > c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must not exceed RefreshTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > maxLeeway {
		return fmt.Errorf("JWT Leeway must be between 0 and %s", maxLeeway)
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be empty")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.RenewalThreshold < 0 {
		return errors.New("Session RenewalThreshold must be >= 0")
	}
	if c.Session.RenewalThreshold >= c.JWT.RefreshTTL {
		return errors.New("Session RenewalThreshold must be shorter than JWT RefreshTTL")
	}

	// Verification
	if strings.TrimSpace(c.Verification.RedisPrefix) == "" {
		return errors.New("Verification RedisPrefix must not be empty")
	}
	if c.Verification.RedisPrefix == c.Session.RedisPrefix {
		return errors.New("Verification RedisPrefix must differ from Session RedisPrefix")
	}
	if c.Verification.EmailTTL <= 0 || c.Verification.EmailTTL > maxVerificationTTL {
		return fmt.Errorf("Verification EmailTTL must be in (0, %s]", maxVerificationTTL)
	}
	if c.Verification.PasswordResetTTL <= 0 || c.Verification.PasswordResetTTL > maxVerificationTTL {
		return fmt.Errorf("Verification PasswordResetTTL must be in (0, %s]", maxVerificationTTL)
	}

	// Password
	if c.Password.BcryptCost < minBcryptCost || c.Password.BcryptCost > maxBcryptCost {
		return fmt.Errorf("Password BcryptCost must be between %d and %d", minBcryptCost, maxBcryptCost)
	}

	// Policy
	if c.Policy.PasswordResetWindow <= 0 {
		return errors.New("Policy PasswordResetWindow must be > 0")
	}
	if c.Policy.PasswordResetMaxPerWindow < 1 {
		return errors.New("Policy PasswordResetMaxPerWindow must be >= 1")
	}

	// IP history
	if c.IPHistory.CleanupBatchSize <= 0 {
		return errors.New("IPHistory CleanupBatchSize must be > 0")
	}
	if _, err := cron.ParseStandard(c.IPHistory.CleanupSchedule); err != nil {
		return fmt.Errorf("IPHistory CleanupSchedule is invalid: %w", err)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.FrontendURL == "" {
		return errors.New("FrontendURL must not be empty")
	}
	u, err := url.Parse(c.FrontendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("FrontendURL must be an absolute URL")
	}

	return nil
}
