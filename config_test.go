package authd

import (
	"strings"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	return cfg
}

func TestDefaultConfigNeedsOnlySecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing secrets to fail validation")
	}

	cfg = validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with secrets to validate, got %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"access ttl", cfg.JWT.AccessTTL, 15 * time.Minute},
		{"refresh ttl", cfg.JWT.RefreshTTL, 30 * 24 * time.Hour},
		{"email ttl", cfg.Verification.EmailTTL, 45 * time.Minute},
		{"reset ttl", cfg.Verification.PasswordResetTTL, 15 * time.Minute},
		{"reset window", cfg.Policy.PasswordResetWindow, 5 * time.Minute},
		{"reset max", cfg.Policy.PasswordResetMaxPerWindow, 1},
		{"ip retention", cfg.IPHistory.RetentionLimit, 10},
		{"cleanup schedule", cfg.IPHistory.CleanupSchedule, "0 0 * * *"},
		{"require verified", cfg.Policy.RequireVerifiedEmail, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "jwt leeway valid",
			mutate:    func(c *Config) { c.JWT.Leeway = 45 * time.Second },
			wantValid: true,
		},
		{
			name:   "jwt leeway too large",
			mutate: func(c *Config) { c.JWT.Leeway = 3 * time.Minute },
		},
		{
			name:   "short access secret",
			mutate: func(c *Config) { c.JWT.AccessSecret = []byte("short") },
		},
		{
			name:   "identical secrets",
			mutate: func(c *Config) { c.JWT.RefreshSecret = c.JWT.AccessSecret },
		},
		{
			name:   "access ttl above refresh ttl",
			mutate: func(c *Config) { c.JWT.AccessTTL = 31 * 24 * time.Hour },
		},
		{
			name:   "jwt audience blank",
			mutate: func(c *Config) { c.JWT.Audience = "  " },
		},
		{
			name:   "renewal threshold equals refresh ttl",
			mutate: func(c *Config) { c.Session.RenewalThreshold = c.JWT.RefreshTTL },
		},
		{
			name:      "renewal disabled",
			mutate:    func(c *Config) { c.Session.RenewalThreshold = 0 },
			wantValid: true,
		},
		{
			name:   "shared redis prefixes",
			mutate: func(c *Config) { c.Verification.RedisPrefix = c.Session.RedisPrefix },
		},
		{
			name:   "email ttl zero",
			mutate: func(c *Config) { c.Verification.EmailTTL = 0 },
		},
		{
			name:   "reset ttl beyond a week",
			mutate: func(c *Config) { c.Verification.PasswordResetTTL = 8 * 24 * time.Hour },
		},
		{
			name:   "bcrypt cost too low",
			mutate: func(c *Config) { c.Password.BcryptCost = 3 },
		},
		{
			name:   "reset max per window zero",
			mutate: func(c *Config) { c.Policy.PasswordResetMaxPerWindow = 0 },
		},
		{
			name:   "bad cron schedule",
			mutate: func(c *Config) { c.IPHistory.CleanupSchedule = "every day" },
		},
		{
			name:      "cron descriptor",
			mutate:    func(c *Config) { c.IPHistory.CleanupSchedule = "@hourly" },
			wantValid: true,
		},
		{
			name:   "cleanup batch zero",
			mutate: func(c *Config) { c.IPHistory.CleanupBatchSize = 0 },
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
		},
		{
			name:   "relative frontend url",
			mutate: func(c *Config) { c.FrontendURL = "/app" },
		},
		{
			name:      "unbounded ip history",
			mutate:    func(c *Config) { c.IPHistory.RetentionLimit = 0 },
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestCloneConfigCopiesSecrets(t *testing.T) {
	cfg := validTestConfig()
	cp := cloneConfig(cfg)
	cp.JWT.AccessSecret[0] = 'x'
	if cfg.JWT.AccessSecret[0] != 'a' {
		t.Fatalf("clone shares the secret backing array")
	}
}
