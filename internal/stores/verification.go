package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/authd/internal"
	"github.com/redis/go-redis/v9"
)

const (
	verificationRecordVersionV1 = 1

	defaultLedgerPrefix    = "avc"
	defaultRecentRetention = time.Hour
)

var (
	ErrVerificationNotFound         = errors.New("verification record not found")
	ErrVerificationRedisUnavailable = errors.New("verification redis unavailable")
	ErrVerificationInvalidType      = errors.New("verification type is invalid")
)

// VerificationType distinguishes what a code authorises. A code issued for
// one type can never be consumed as another.
type VerificationType uint8

const (
	EmailVerification VerificationType = 1
	PasswordReset     VerificationType = 2
)

func (t VerificationType) String() string {
	switch t {
	case EmailVerification:
		return "email_verification"
	case PasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

func (t VerificationType) valid() bool {
	return t == EmailVerification || t == PasswordReset
}

// consumeVerificationLua atomically performs GET→validate→DEL on a code record.
// KEYS[1] = record key
// ARGV[1] = expected type (byte)
// ARGV[2] = current unix time in milliseconds
//
// Returns:
//
//	record bytes on success
//	error string: "not_found", "expired", "type_mismatch"
var consumeVerificationLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local expectedType = tonumber(ARGV[1])
local nowMs = tonumber(ARGV[2])

-- Minimal binary decode: version(1) type(1) expiresAtMs(8 big-endian) ...
local version = string.byte(data, 1)
if version ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local kind = string.byte(data, 2)

local expiresAt = 0
for i = 3, 10 do
  expiresAt = expiresAt * 256 + string.byte(data, i)
end

if nowMs >= expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

if kind ~= expectedType then
  return {err='type_mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// VerificationRecord is a single-use code. Code is only populated on Issue;
// Consume returns the stored fields and the code it was called with.
type VerificationRecord struct {
	Code      string
	UserID    string
	Type      VerificationType
	CreatedAt time.Time
	ExpiresAt time.Time
}

// LedgerConfig configures a VerificationLedger.
type LedgerConfig struct {
	// Prefix namespaces every key. Defaults to "avc".
	Prefix string
	// RecentRetention bounds how far back CountRecent can look. It should be
	// at least the longest throttle window in use. Defaults to one hour.
	RecentRetention time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// VerificationLedger issues and consumes verification codes.
type VerificationLedger struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

func NewVerificationLedger(redisClient redis.UniversalClient, cfg LedgerConfig) *VerificationLedger {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultLedgerPrefix
	}
	if cfg.RecentRetention <= 0 {
		cfg.RecentRetention = defaultRecentRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &VerificationLedger{
		redis:     redisClient,
		prefix:    cfg.Prefix,
		retention: cfg.RecentRetention,
		now:       cfg.Now,
	}
}

func (l *VerificationLedger) codeKey(kind VerificationType, code string) string {
	return l.prefix + ":code:" + strconv.Itoa(int(kind)) + ":" + internal.HashVerificationCode(code)
}

func (l *VerificationLedger) recentKey(kind VerificationType, userID string) string {
	return l.prefix + ":recent:" + strconv.Itoa(int(kind)) + ":" + userID
}

// Issue generates a fresh code for userID, stores it with the given lifetime
// and records the issue time in the user's recency index.
func (l *VerificationLedger) Issue(
	ctx context.Context,
	userID string,
	kind VerificationType,
	ttl time.Duration,
) (VerificationRecord, error) {
	if !kind.valid() {
		return VerificationRecord{}, ErrVerificationInvalidType
	}
	if userID == "" || ttl <= 0 {
		return VerificationRecord{}, errors.New("verification record requires user id and positive ttl")
	}

	code, err := internal.NewVerificationCode()
	if err != nil {
		return VerificationRecord{}, err
	}

	now := l.now()
	record := VerificationRecord{
		Code:      code,
		UserID:    userID,
		Type:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	encoded, err := encodeVerificationRecord(&record)
	if err != nil {
		return VerificationRecord{}, err
	}

	recentKey := l.recentKey(kind, userID)
	nowMs := now.UnixMilli()
	indexTTL := max(ttl, l.retention)

	_, err = l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, l.codeKey(kind, code), encoded, ttl)
		pipe.ZAdd(ctx, recentKey, redis.Z{Score: float64(nowMs), Member: internal.HashVerificationCode(code)})
		pipe.ZRemRangeByScore(ctx, recentKey, "-inf", "("+strconv.FormatInt(nowMs-l.retention.Milliseconds(), 10))
		pipe.PExpire(ctx, recentKey, indexTTL)
		return nil
	})
	if err != nil {
		return VerificationRecord{}, fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
	}

	return record, nil
}

// Consume atomically validates and deletes the record for code, then drops it
// from the user's recency index. Unknown, expired and wrong-type codes all
// yield ErrVerificationNotFound. A wrong-type attempt leaves the record in
// place for its real flow.
func (l *VerificationLedger) Consume(
	ctx context.Context,
	code string,
	kind VerificationType,
) (VerificationRecord, error) {
	if !kind.valid() {
		return VerificationRecord{}, ErrVerificationInvalidType
	}
	code, ok := internal.NormalizeVerificationCode(code)
	if !ok {
		return VerificationRecord{}, ErrVerificationNotFound
	}

	result, err := consumeVerificationLua.Run(ctx, l.redis,
		[]string{l.codeKey(kind, code)},
		int(kind),
		l.now().UnixMilli(),
	).Result()
	if err != nil {
		switch strings.TrimSpace(err.Error()) {
		case "not_found", "expired", "type_mismatch":
			return VerificationRecord{}, ErrVerificationNotFound
		default:
			return VerificationRecord{}, fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return VerificationRecord{}, fmt.Errorf("%w: unexpected lua result type", ErrVerificationRedisUnavailable)
	}

	record, err := decodeVerificationRecord([]byte(data))
	if err != nil {
		return VerificationRecord{}, fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
	}
	record.Code = code

	// A redeemed code no longer counts toward the issue throttle. The index
	// entry still ages out with retention if this removal fails.
	_ = l.redis.ZRem(ctx, l.recentKey(kind, record.UserID), internal.HashVerificationCode(code)).Err()
	return *record, nil
}

// CountRecent returns how many unredeemed codes of kind were issued to userID
// within the trailing window. Windows longer than the configured retention are capped.
func (l *VerificationLedger) CountRecent(
	ctx context.Context,
	userID string,
	kind VerificationType,
	window time.Duration,
) (int, error) {
	if !kind.valid() {
		return 0, ErrVerificationInvalidType
	}
	window = min(window, l.retention)
	from := l.now().Add(-window).UnixMilli()

	n, err := l.redis.ZCount(ctx, l.recentKey(kind, userID), strconv.FormatInt(from, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
	}
	return int(n), nil
}

func encodeVerificationRecord(record *VerificationRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(verificationRecordVersionV1)
	buf.WriteByte(byte(record.Type))

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}

	if len(record.UserID) > 65535 {
		return nil, errors.New("verification record user id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)

	return buf.Bytes(), nil
}

func decodeVerificationRecord(data []byte) (*VerificationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	kind, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	var expiresAt, createdAt int64
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return nil, err
	}

	var userIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userIDLen); err != nil {
		return nil, err
	}
	userID := make([]byte, userIDLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}

	return &VerificationRecord{
		UserID:    string(userID),
		Type:      VerificationType(kind),
		CreatedAt: time.UnixMilli(createdAt),
		ExpiresAt: time.UnixMilli(expiresAt),
	}, nil
}
