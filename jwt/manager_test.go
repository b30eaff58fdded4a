package jwt

import (
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	testAccessSecret  = []byte("access-secret-access-secret-0123456789")
	testRefreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsWeakConfig(t *testing.T) {
	base := Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
	cases := map[string]func(c *Config){
		"short access":  func(c *Config) { c.AccessSecret = []byte("short") },
		"short refresh": func(c *Config) { c.RefreshSecret = []byte("short") },
		"same secrets":  func(c *Config) { c.RefreshSecret = c.AccessSecret },
		"zero access":   func(c *Config) { c.AccessTTL = 0 },
		"zero refresh":  func(c *Config) { c.RefreshTTL = 0 },
		"huge leeway":   func(c *Config) { c.Leeway = time.Hour },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := NewManager(base); err != nil {
		t.Fatalf("base config rejected: %v", err)
	}
}

func TestSignAndVerifyAccess(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, exp, err := m.SignAccess("user-1", "sess-1")
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	if !exp.Equal(clock.now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, status := m.VerifyAccess(token)
	if status != StatusValid {
		t.Fatalf("expected valid, got %v", status)
	}
	if claims.UID != "user-1" || claims.SID != "sess-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != DefaultAudience {
		t.Fatalf("expected audience %q, got %v", DefaultAudience, claims.Audience)
	}
}

func TestVerifyAccessExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, _, err := m.SignAccess("user-1", "sess-1")
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	clock.now = clock.now.Add(16 * time.Minute)

	if claims, status := m.VerifyAccess(token); status != StatusExpired || claims == nil {
		t.Fatalf("expected expired with claims, got %v", status)
	}
	claims, status := m.VerifyAccessAllowExpired(token)
	if status != StatusValid {
		t.Fatalf("allow-expired should accept authentic token, got %v", status)
	}
	if claims.SID != "sess-1" {
		t.Fatalf("unexpected sid %q", claims.SID)
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	access, _, _ := m.SignAccess("user-1", "sess-1")
	refresh, _, _ := m.SignRefresh("sess-1")

	if _, status := m.VerifyRefresh(access); status != StatusInvalid {
		t.Fatalf("access token accepted as refresh: %v", status)
	}
	if _, status := m.VerifyAccess(refresh); status != StatusInvalid {
		t.Fatalf("refresh token accepted as access: %v", status)
	}
	if claims, status := m.VerifyRefresh(refresh); status != StatusValid || claims.SID != "sess-1" {
		t.Fatalf("refresh verify failed: %v", status)
	}
}

func TestVerifyRejectsTamperedAndForeignTokens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, _, _ := m.SignAccess("user-1", "sess-1")
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	wrongAudience := gjwt.NewWithClaims(gjwt.SigningMethodHS256, AccessClaims{
		UID: "user-1",
		SID: "sess-1",
		RegisteredClaims: gjwt.RegisteredClaims{
			Audience:  gjwt.ClaimStrings{"admin"},
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		},
	})
	foreignAud, _ := wrongAudience.SignedString(testAccessSecret)

	wrongKey := gjwt.NewWithClaims(gjwt.SigningMethodHS256, AccessClaims{
		UID: "user-1",
		SID: "sess-1",
		RegisteredClaims: gjwt.RegisteredClaims{
			Audience:  gjwt.ClaimStrings{DefaultAudience},
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		},
	})
	foreignKey, _ := wrongKey.SignedString([]byte("some-other-secret-some-other-secret-00"))

	noExp := gjwt.NewWithClaims(gjwt.SigningMethodHS256, AccessClaims{
		UID:              "user-1",
		SID:              "sess-1",
		RegisteredClaims: gjwt.RegisteredClaims{Audience: gjwt.ClaimStrings{DefaultAudience}},
	})
	noExpTok, _ := noExp.SignedString(testAccessSecret)

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"tampered":     tampered,
		"foreign aud":  foreignAud,
		"foreign key":  foreignKey,
		"missing exp":  noExpTok,
		"alg none":     "eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.",
		"truncated":    parts[0] + "." + parts[1],
		"extra period": token + ".",
	} {
		if _, status := m.VerifyAccess(tok); status != StatusInvalid {
			t.Fatalf("%s: expected invalid, got %v", name, status)
		}
		if _, status := m.VerifyAccessAllowExpired(tok); status != StatusInvalid {
			t.Fatalf("%s: allow-expired expected invalid, got %v", name, status)
		}
	}
}

func TestLeewayExtendsExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m, err := NewManager(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Leeway:        30 * time.Second,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, _, _ := m.SignAccess("u", "s")
	clock.now = clock.now.Add(80 * time.Second)
	if _, status := m.VerifyAccess(token); status != StatusValid {
		t.Fatalf("expected leeway to accept token, got %v", status)
	}
	clock.now = clock.now.Add(20 * time.Second)
	if _, status := m.VerifyAccess(token); status != StatusExpired {
		t.Fatalf("expected expired past leeway, got %v", status)
	}
}

func TestIssuerIsEnforcedWhenConfigured(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	issuing, _ := NewManager(Config{
		AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret,
		AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "other", Now: clock.Now,
	})
	verifying, _ := NewManager(Config{
		AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret,
		AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "authd", Now: clock.Now,
	})
	token, _, _ := issuing.SignAccess("u", "s")
	if _, status := verifying.VerifyAccess(token); status != StatusInvalid {
		t.Fatalf("expected issuer mismatch to be invalid, got %v", status)
	}
}
