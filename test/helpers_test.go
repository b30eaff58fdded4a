//go:build integration

package test

import (
	"context"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authd"
	"github.com/MrEthical07/authd/userstore/memory"
)

const password = "integration password"

// redisMode is one Redis backend the suite runs against. miniredis is always
// available; a real server is added when REDIS_ADDR is set.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{
		name: "miniredis",
		setup: func(t *testing.T) redis.UniversalClient {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return rdb
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				t.Cleanup(func() {
					rdb.FlushDB(context.Background())
					_ = rdb.Close()
				})
				return rdb
			},
		})
	}
	return modes
}

type outbox struct {
	mu   sync.Mutex
	msgs []authd.Message
}

func (o *outbox) Send(_ context.Context, msg authd.Message) (authd.Delivery, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return authd.Delivery{ID: "it"}, nil
}

var codeRe = regexp.MustCompile(`(?:/email/verify/|code=)([0-9a-f]+)`)

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.msgs) == 0 {
		t.Fatalf("no message sent")
	}
	m := codeRe.FindStringSubmatch(o.msgs[len(o.msgs)-1].Text)
	if m == nil {
		t.Fatalf("no code in %q", o.msgs[len(o.msgs)-1].Text)
	}
	return m[1]
}

type harness struct {
	engine *authd.Engine
	users  *memory.Store
	outbox *outbox
}

func newHarness(t *testing.T, rdb redis.UniversalClient, mutate func(*authd.Config), now func() time.Time) *harness {
	t.Helper()

	cfg := authd.DefaultConfig()
	cfg.AppName = "Integration"
	cfg.FrontendURL = "https://app.example.com"
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	users := memory.New()
	box := &outbox{}
	b := authd.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithNotifier(box)
	if now != nil {
		users.WithClock(now)
		b.WithClock(now)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &harness{engine: engine, users: users, outbox: box}
}

func (h *harness) signUp(t *testing.T, email string) authd.PublicUser {
	t.Helper()
	ctx := context.Background()
	user, err := h.engine.Register(ctx, authd.RegisterRequest{
		Name: "Integration", Email: email, Password: password, ConfirmPassword: password, IP: "198.51.100.1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := h.engine.VerifyEmail(ctx, h.outbox.lastCode(t)); err != nil {
		t.Fatalf("verify: %v", err)
	}
	return user
}

func (h *harness) signIn(t *testing.T, email string) authd.LoginResult {
	t.Helper()
	res, err := h.engine.Login(context.Background(), authd.LoginRequest{
		Email: email, Password: password, UserAgent: "integration", IP: "198.51.100.1",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res
}
