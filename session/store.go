package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/authd/internal"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport-level Redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when no record exists for the session id.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when the record exists but ExpiresAt has passed.
var ErrSessionExpired = errors.New("session expired")

const (
	extendStatusNotFound    int64 = 0
	extendStatusExpired     int64 = 1
	extendStatusExtended    int64 = 2
	extendStatusInvalidBlob int64 = 3
)

// luaSessionHelpers read fields straight out of the encoded record.
const luaSessionHelpers = `
local function user_id_of(data)
  local version = string.byte(data, 1)
  if version ~= 1 then
    return nil
  end
  local user_len = string.byte(data, 2)
  if not user_len or #data < 2 + user_len then
    return nil
  end
  return string.sub(data, 3, 2 + user_len)
end

local function expires_at_of(data)
  if #data < 8 then
    return nil
  end
  local v = 0
  for i = #data - 7, #data do
    v = v * 256 + string.byte(data, i)
  end
  return v
end
`

// KEYS[1] = session key
// ARGV[1] = session id
// ARGV[2] = user index key prefix
const deleteSessionScript = luaSessionHelpers + `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
local user_id = user_id_of(data)
redis.call("DEL", KEYS[1])
if user_id then
  redis.call("SREM", ARGV[2] .. user_id, ARGV[1])
end
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// KEYS[1] = session key
// ARGV[1] = session id
// ARGV[2] = user index key prefix
// ARGV[3] = new expiresAt tail (8 bytes big-endian unix ms)
// ARGV[4] = new ttl in ms
// ARGV[5] = current unix ms
const extendSessionScript = luaSessionHelpers + `
local data = redis.call("GET", KEYS[1])
if not data then
  return {0}
end

local user_id = user_id_of(data)
local expires_at = expires_at_of(data)
if not user_id or not expires_at then
  return {3}
end

if expires_at <= tonumber(ARGV[5]) then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", ARGV[2] .. user_id, ARGV[1])
  return {1}
end

local updated = string.sub(data, 1, #data - 8) .. ARGV[3]
redis.call("SET", KEYS[1], updated, "PX", tonumber(ARGV[4]))
redis.call("SADD", ARGV[2] .. user_id, ARGV[1])
return {2, updated}
`

var extendSessionLua = redis.NewScript(extendSessionScript)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Prefix namespaces every key. Defaults to "as".
	Prefix string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Store is a Redis-backed session store that handles persistence,
// expiration, rolling extension and the per-user session index.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(redisClient redis.UniversalClient, cfg StoreConfig) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "as"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		redis:  redisClient,
		prefix: cfg.Prefix,
		now:    cfg.Now,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Create persists a new session for userID that lives for lifetime.
//
//	Performance: 1 MULTI/EXEC (SET + SADD).
func (s *Store) Create(ctx context.Context, userID, userAgent, ip string, lifetime time.Duration) (*Session, error) {
	if lifetime <= 0 {
		return nil, errors.New("session lifetime must be positive")
	}
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        sid.String(),
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
	data, err := Encode(sess)
	if err != nil {
		return nil, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, lifetime)
		pipe.SAdd(ctx, s.userKey(userID), sess.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// Get retrieves a live session. A stored but dead session is removed and
// reported as ErrSessionExpired.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, errors.Join(ErrSessionCorrupt, err)
	}
	sess.ID = sessionID

	if !sess.Alive(s.now()) {
		if err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	return sess, nil
}

// Delete removes a session and its index entry. Deleting a missing session
// is not an error.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := deleteSessionLua.Run(ctx, s.redis,
		[]string{s.key(sessionID)},
		sessionID,
		s.userKeyPrefix(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every session of userID and returns how many
// records were deleted.
//
// The index is read before the delete, so a session created concurrently
// may survive this call; it expires on its own.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(sessionIDs) == 0 {
		return 0, nil
	}

	sessionKeys := make([]string, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		sessionKeys = append(sessionKeys, s.key(sessionID))
	}

	var delCmd *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, sessionKeys...)
		pipe.SRem(ctx, userKey, toInterfaces(sessionIDs)...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(delCmd.Val()), nil
}

// Extend moves the session's expiry to expiresAt and resets its Redis TTL
// to match. The rewrite is atomic with respect to Delete.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Extend(ctx context.Context, sessionID string, expiresAt time.Time) (*Session, error) {
	now := s.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil, errors.New("session extension must be in the future")
	}

	result, err := extendSessionLua.Run(ctx, s.redis,
		[]string{s.key(sessionID)},
		sessionID,
		s.userKeyPrefix(),
		encodeExpiresAt(expiresAt),
		ttl.Milliseconds(),
		now.UnixMilli(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid extend script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid extend script status", ErrRedisUnavailable)
	}

	switch code {
	case extendStatusNotFound:
		return nil, ErrSessionNotFound
	case extendStatusExpired:
		return nil, ErrSessionExpired
	case extendStatusInvalidBlob:
		return nil, ErrSessionCorrupt
	case extendStatusExtended:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing extended session payload", ErrRedisUnavailable)
		}
		var blob []byte
		switch v := parts[1].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return nil, fmt.Errorf("%w: invalid extended session payload", ErrRedisUnavailable)
		}
		sess, decErr := Decode(blob)
		if decErr != nil {
			return nil, errors.Join(ErrSessionCorrupt, decErr)
		}
		sess.ID = sessionID
		return sess, nil
	default:
		return nil, fmt.Errorf("%w: unknown extend script status", ErrRedisUnavailable)
	}
}

// ListForUser returns the user's live sessions, newest first. Index members
// whose records are gone or dead are pruned.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]*Session, error) {
	userKey := s.userKey(userID)
	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(sessionIDs) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(sessionIDs))
	for i, sid := range sessionIDs {
		cmds[i] = pipe.Get(ctx, s.key(sid))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := s.now()
	sessions := make([]*Session, 0, len(sessionIDs))
	var stale []interface{}
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, sessionIDs[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		sess, decErr := Decode(data)
		if decErr != nil || sess.UserID != userID || !sess.Alive(now) {
			stale = append(stale, sessionIDs[i])
			continue
		}
		sess.ID = sessionIDs[i]
		sessions = append(sessions, sess)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	sortNewestFirst(sessions)
	return sessions, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func toInterfaces(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func sortNewestFirst(sessions []*Session) {
	slices.SortFunc(sessions, func(a, b *Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}
