package authd_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authd"
	"github.com/MrEthical07/authd/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct horse battery"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// recordingNotifier keeps every message it was asked to send.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []authd.Message
	err      error
	noID     bool
}

func (n *recordingNotifier) Send(_ context.Context, msg authd.Message) (authd.Delivery, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	if n.err != nil {
		return authd.Delivery{}, n.err
	}
	if n.noID {
		return authd.Delivery{}, nil
	}
	return authd.Delivery{ID: "msg-" + strings.Repeat("x", len(n.messages))}, nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func (n *recordingNotifier) last(t *testing.T) authd.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		t.Fatalf("no message sent")
	}
	return n.messages[len(n.messages)-1]
}

func (n *recordingNotifier) fail(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

var (
	verifyLinkRe = regexp.MustCompile(`/email/verify/([0-9a-f]+)`)
	resetLinkRe  = regexp.MustCompile(`/password/reset\?code=([0-9a-f]+)&exp=(\d+)`)
)

func verificationCode(t *testing.T, msg authd.Message) string {
	t.Helper()
	m := verifyLinkRe.FindStringSubmatch(msg.Text)
	if m == nil {
		t.Fatalf("no verification link in %q", msg.Text)
	}
	return m[1]
}

func resetCode(t *testing.T, msg authd.Message) string {
	t.Helper()
	m := resetLinkRe.FindStringSubmatch(msg.Text)
	if m == nil {
		t.Fatalf("no reset link in %q", msg.Text)
	}
	return m[1]
}

type testEnv struct {
	engine   *authd.Engine
	users    *memory.Store
	notifier *recordingNotifier
	redis    *miniredis.Miniredis
	clock    *testClock
}

// advance moves both the engine clock and miniredis key expiry forward.
func (env *testEnv) advance(d time.Duration) {
	env.clock.mu.Lock()
	env.clock.now = env.clock.now.Add(d)
	env.clock.mu.Unlock()
	env.redis.FastForward(d)
}

func testConfig() authd.Config {
	cfg := authd.DefaultConfig()
	cfg.AppName = "Acme"
	cfg.FrontendURL = "https://app.example.com"
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*authd.Config), opts ...func(*authd.Builder)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	users := memory.New().WithClock(clock.Now)
	notifier := &recordingNotifier{}

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	b := authd.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithNotifier(notifier).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{engine: engine, users: users, notifier: notifier, redis: mr, clock: clock}
}

// registerVerified registers email and redeems its verification code.
func (env *testEnv) registerVerified(t *testing.T, email string) authd.PublicUser {
	t.Helper()
	user := env.register(t, email)
	if _, err := env.engine.VerifyEmail(context.Background(), verificationCode(t, env.notifier.last(t))); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	return user
}

func (env *testEnv) register(t *testing.T, email string) authd.PublicUser {
	t.Helper()
	user, err := env.engine.Register(context.Background(), authd.RegisterRequest{
		Name:            "Ada Lovelace",
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
		IP:              "198.51.100.7",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func (env *testEnv) login(t *testing.T, email string) authd.LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), authd.LoginRequest{
		Email:     email,
		Password:  testPassword,
		UserAgent: "test-agent",
		IP:        "198.51.100.7",
	})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res
}

func assertKind(t *testing.T, err error, want authd.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var e *authd.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *authd.Error, got %T: %v", err, err)
	}
	if e.Kind != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, e.Kind, err)
	}
}
