package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authd/jwt"
	"github.com/MrEthical07/authd/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureInvalidToken
	RefreshFailureSessionNotFound
	RefreshFailureSessionStore
	RefreshFailureIssueAccess
	RefreshFailureIssueRefresh
)

// RefreshResult carries either the issued tokens or failure metadata.
// RefreshToken is empty unless the session was rolled.
type RefreshResult struct {
	Failure          RefreshFailureKind
	Err              error
	TokenStatus      jwt.VerifyStatus
	SessionID        string
	UserID           string
	Session          *session.Session
	Rolled           bool
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type RefreshSessionStore interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Extend(ctx context.Context, sessionID string, expiresAt time.Time) (*session.Session, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	VerifyRefresh func(string) (*jwt.RefreshClaims, jwt.VerifyStatus)
	SignAccess    func(userID, sessionID string) (string, time.Time, error)
	SignRefresh   func(sessionID string) (string, time.Time, error)
	SessionStore  RefreshSessionStore
	// RenewalThreshold is the remaining lifetime at or below which the
	// session is rolled.
	RenewalThreshold time.Duration
	SessionLifetime  time.Duration
	Now              func() time.Time
}

// RunRefresh validates a refresh token against its live session, rolls the
// session when it is close to expiry, and always mints a new access token.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, status := deps.VerifyRefresh(refreshToken)
	if status != jwt.StatusValid || claims == nil {
		return RefreshResult{Failure: RefreshFailureInvalidToken, TokenStatus: status}
	}
	sessionID := claims.SID

	sess, err := deps.SessionStore.Get(ctx, sessionID)
	if err != nil {
		return refreshSessionFailure(err, sessionID)
	}

	result := RefreshResult{
		TokenStatus: status,
		SessionID:   sessionID,
		UserID:      sess.UserID,
	}

	now := deps.Now()
	if sess.ExpiresAt.Sub(now) <= deps.RenewalThreshold {
		sess, err = deps.SessionStore.Extend(ctx, sessionID, now.Add(deps.SessionLifetime))
		if err != nil {
			res := refreshSessionFailure(err, sessionID)
			res.UserID = result.UserID
			return res
		}
		result.RefreshToken, result.RefreshExpiresAt, err = deps.SignRefresh(sessionID)
		if err != nil {
			result.Failure = RefreshFailureIssueRefresh
			result.Err = err
			result.Session = sess
			return result
		}
		result.Rolled = true
	}
	result.Session = sess

	result.AccessToken, result.AccessExpiresAt, err = deps.SignAccess(sess.UserID, sessionID)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureIssueAccess,
			Err:       err,
			SessionID: sessionID,
			UserID:    sess.UserID,
			Session:   sess,
		}
	}
	return result
}

func refreshSessionFailure(err error, sessionID string) RefreshResult {
	if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) {
		return RefreshResult{Failure: RefreshFailureSessionNotFound, Err: err, TokenStatus: jwt.StatusValid, SessionID: sessionID}
	}
	return RefreshResult{Failure: RefreshFailureSessionStore, Err: err, TokenStatus: jwt.StatusValid, SessionID: sessionID}
}
