package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// SessionID is 128 bits of randomness rendered as unpadded base64url.
type SessionID [16]byte

// VerificationCodeSize is the number of random bytes in a verification code.
// The printable form is twice as many lowercase hex characters.
const VerificationCodeSize = 12

var errInvalidSessionID = errors.New("invalid session id size")

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errInvalidSessionID
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewVerificationCode returns 24 lowercase hex characters (96 bits).
func NewVerificationCode() (string, error) {
	var raw [VerificationCodeSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// NormalizeVerificationCode trims and lowercases user input. It returns false
// when the input cannot be a code we issued.
func NormalizeVerificationCode(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) != 2*VerificationCodeSize {
		return "", false
	}
	if _, err := hex.DecodeString(code); err != nil {
		return "", false
	}
	return code, true
}

// HashVerificationCode is the storage key component for a code, so a Redis
// dump never exposes usable codes.
func HashVerificationCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
