package session

import "time"

// Session is a server-side record of one login.
type Session struct {
	ID        string
	UserID    string
	UserAgent string
	IP        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Alive reports whether the session is still usable at now.
func (s *Session) Alive(now time.Time) bool {
	return s != nil && s.ExpiresAt.After(now)
}

// Remaining returns the lifetime left at now, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	return max(s.ExpiresAt.Sub(now), 0)
}
