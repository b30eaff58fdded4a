package session

import (
	"testing"
	"time"
)

// FuzzSessionDecode exercises the binary session decoder with arbitrary inputs.
// Goal: no panics, and anything accepted re-encodes to the same bytes.
func FuzzSessionDecode(f *testing.F) {
	sess := &Session{
		UserID:    "user1",
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0",
		CreatedAt: time.UnixMilli(1_700_000_000_000),
		ExpiresAt: time.UnixMilli(1_700_003_600_000),
	}
	if encoded, err := Encode(sess); err == nil {
		f.Add(encoded)
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{1, 0})
	f.Add([]byte{2, 1, 'u', 0, 0, 0})
	f.Add([]byte{1, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if s.UserID == "" {
			return
		}
		again, err := Encode(s)
		if err != nil {
			t.Fatalf("re-encode of decoded session failed: %v", err)
		}
		if string(again) != string(data) {
			t.Fatalf("roundtrip mismatch")
		}
	})
}
