package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newSessionStoreTest(t *testing.T) (*Store, *testClock, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	clock := &testClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	return NewStore(rdb, StoreConfig{Prefix: "as", Now: clock.Now}), clock, mr
}

func TestCreateAndGet(t *testing.T) {
	store, clock, mr := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "u-1", "curl/8", "198.51.100.4", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID == "" || !sess.ExpiresAt.Equal(clock.now.Add(7*24*time.Hour)) {
		t.Fatalf("unexpected session %+v", sess)
	}
	if ttl := mr.TTL("as:s:" + sess.ID); ttl != 7*24*time.Hour {
		t.Fatalf("expected redis ttl of full lifetime, got %v", ttl)
	}
	if ok, _ := mr.SIsMember("as:u:u-1", sess.ID); !ok {
		t.Fatal("session missing from user index")
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u-1" || got.UserAgent != "curl/8" || got.IP != "198.51.100.4" || got.ID != sess.ID {
		t.Fatalf("unexpected decoded session %+v", got)
	}
}

func TestGetMissingAndExpired(t *testing.T) {
	store, clock, mr := newSessionStoreTest(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	sess, _ := store.Create(ctx, "u-1", "", "", time.Hour)
	clock.Advance(time.Hour)
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected expired at ExpiresAt == now, got %v", err)
	}
	if mr.Exists("as:s:" + sess.ID) {
		t.Fatal("dead session should be removed on read")
	}
	if ok, _ := mr.SIsMember("as:u:u-1", sess.ID); ok {
		t.Fatal("dead session should leave the user index")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, _, mr := newSessionStoreTest(t)
	ctx := context.Background()

	sess, _ := store.Create(ctx, "u-1", "", "", time.Hour)
	for i := 0; i < 2; i++ {
		if err := store.Delete(ctx, sess.ID); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if mr.Exists("as:s:" + sess.ID) {
		t.Fatal("session still stored")
	}
	if ok, _ := mr.SIsMember("as:u:u-1", sess.ID); ok {
		t.Fatal("index still references deleted session")
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := store.Create(ctx, "u-1", "", "", time.Hour)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, s.ID)
	}
	other, _ := store.Create(ctx, "u-2", "", "", time.Hour)

	n, err := store.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
	for _, id := range ids {
		if _, err := store.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("session %s survived: %v", id, err)
		}
	}
	if _, err := store.Get(ctx, other.ID); err != nil {
		t.Fatalf("other user's session affected: %v", err)
	}

	if n, err := store.DeleteAllForUser(ctx, "u-1"); err != nil || n != 0 {
		t.Fatalf("second delete all: n=%d err=%v", n, err)
	}
}

func TestExtendRewritesExpiryAndTTL(t *testing.T) {
	store, clock, mr := newSessionStoreTest(t)
	ctx := context.Background()

	sess, _ := store.Create(ctx, "u-1", "agent", "10.0.0.1", 7*24*time.Hour)
	clock.Advance(6*24*time.Hour + 12*time.Hour)

	newExpiry := clock.Now().Add(7 * 24 * time.Hour)
	extended, err := store.Extend(ctx, sess.ID, newExpiry)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !extended.ExpiresAt.Equal(newExpiry) {
		t.Fatalf("expected expiry %v, got %v", newExpiry, extended.ExpiresAt)
	}
	if extended.UserAgent != "agent" || extended.IP != "10.0.0.1" || !extended.CreatedAt.Equal(sess.CreatedAt) {
		t.Fatalf("extend must not disturb other fields: %+v", extended)
	}
	if ttl := mr.TTL("as:s:" + sess.ID); ttl != 7*24*time.Hour {
		t.Fatalf("expected ttl reset to 7d, got %v", ttl)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil || !got.ExpiresAt.Equal(newExpiry) {
		t.Fatalf("stored expiry not updated: %+v err=%v", got, err)
	}
}

func TestExtendMissingAndDead(t *testing.T) {
	store, clock, _ := newSessionStoreTest(t)
	ctx := context.Background()

	if _, err := store.Extend(ctx, "missing", clock.Now().Add(time.Hour)); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	sess, _ := store.Create(ctx, "u-1", "", "", time.Minute)
	clock.Advance(2 * time.Minute)
	if _, err := store.Extend(ctx, sess.ID, clock.Now().Add(time.Hour)); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("dead session must not be revived, got %v", err)
	}
}

func TestListForUserPrunesDeadEntries(t *testing.T) {
	store, clock, mr := newSessionStoreTest(t)
	ctx := context.Background()

	short, _ := store.Create(ctx, "u-1", "", "", time.Minute)
	clock.Advance(time.Second)
	first, _ := store.Create(ctx, "u-1", "a", "", time.Hour)
	clock.Advance(time.Second)
	second, _ := store.Create(ctx, "u-1", "b", "", time.Hour)
	gone, _ := store.Create(ctx, "u-1", "", "", time.Hour)
	mr.Del("as:s:" + gone.ID)

	clock.Advance(2 * time.Minute)
	list, err := store.ListForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected [second first], got %d sessions", len(list))
	}
	members, _ := mr.Members("as:u:u-1")
	if len(members) != 2 {
		t.Fatalf("expected index pruned to 2, got %v", members)
	}
	for _, m := range members {
		if m == short.ID || m == gone.ID {
			t.Fatalf("stale member %s kept", m)
		}
	}

	empty, err := store.ListForUser(ctx, "nobody")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", empty, err)
	}
}

func TestEncodeTruncatesLongUserAgent(t *testing.T) {
	sess := &Session{
		UserID:    "u",
		UserAgent: strings.Repeat("x", MaxUserAgentLength+100),
		CreatedAt: time.UnixMilli(1),
		ExpiresAt: time.UnixMilli(2),
	}
	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.UserAgent) != MaxUserAgentLength {
		t.Fatalf("expected truncated UA, got %d bytes", len(got.UserAgent))
	}
}

func TestRedisUnavailable(t *testing.T) {
	store, _, mr := newSessionStoreTest(t)
	mr.Close()
	if _, err := store.Create(context.Background(), "u", "", "", time.Hour); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}
