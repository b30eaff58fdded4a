package internal

import "testing"

func TestVerificationCodeShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		code, err := NewVerificationCode()
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		norm, ok := NormalizeVerificationCode(code)
		if !ok || norm != code {
			t.Fatalf("issued code %q does not normalize to itself", code)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = struct{}{}
	}
}

func TestNormalizeVerificationCode(t *testing.T) {
	if got, ok := NormalizeVerificationCode("  ABCDEF0123456789ABCDEF01 "); !ok || got != "abcdef0123456789abcdef01" {
		t.Fatalf("expected normalized code, got %q ok=%v", got, ok)
	}
	for _, bad := range []string{"", "abc", "zzzzzzzzzzzzzzzzzzzzzzzz", "abcdef0123456789abcdef0123"} {
		if _, ok := NormalizeVerificationCode(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestHashVerificationCodeIsStable(t *testing.T) {
	a := HashVerificationCode("abcdef0123456789abcdef01")
	b := HashVerificationCode("abcdef0123456789abcdef01")
	c := HashVerificationCode("abcdef0123456789abcdef02")
	if a != b || a == c || len(a) != 64 {
		t.Fatalf("unexpected hashes %q %q %q", a, b, c)
	}
}

// FuzzParseSessionID exercises session id decoding with arbitrary strings.
// Goal: no panics; accepted inputs render back to themselves.
func FuzzParseSessionID(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("!!!not-base64!!!")
	if sid, err := NewSessionID(); err == nil {
		f.Add(sid.String())
	}

	f.Fuzz(func(t *testing.T, input string) {
		sid, err := ParseSessionID(input)
		if err != nil {
			return
		}
		again, err := ParseSessionID(sid.String())
		if err != nil {
			t.Fatalf("roundtrip parse failed: %v", err)
		}
		if again != sid {
			t.Fatal("roundtrip mismatch")
		}
	})
}
