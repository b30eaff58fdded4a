package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authd/jwt"
	"github.com/MrEthical07/authd/session"
)

// AuthenticateFailureKind classifies access-token validation failures.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureExpired
	AuthenticateFailureInvalid
	AuthenticateFailureSessionNotFound
	AuthenticateFailureSessionStore
	AuthenticateFailureSessionMismatch
)

// AuthenticateResult returns either the claims/session pair or a classified failure.
type AuthenticateResult struct {
	Failure AuthenticateFailureKind
	Err     error
	Claims  *jwt.AccessClaims
	Session *session.Session
}

type AuthenticateSessionStore interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
}

// AuthenticateDeps captures request authentication dependencies.
type AuthenticateDeps struct {
	VerifyAccess func(string) (*jwt.AccessClaims, jwt.VerifyStatus)
	SessionStore AuthenticateSessionStore
}

// RunAuthenticate verifies an access token strictly and confirms that the
// session it names is still alive and belongs to the token's user.
func RunAuthenticate(ctx context.Context, tokenStr string, deps AuthenticateDeps) AuthenticateResult {
	claims, status := deps.VerifyAccess(tokenStr)
	switch status {
	case jwt.StatusValid:
	case jwt.StatusExpired:
		return AuthenticateResult{Failure: AuthenticateFailureExpired, Claims: claims}
	default:
		return AuthenticateResult{Failure: AuthenticateFailureInvalid}
	}

	sess, err := deps.SessionStore.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) {
			return AuthenticateResult{Failure: AuthenticateFailureSessionNotFound, Err: err, Claims: claims}
		}
		return AuthenticateResult{Failure: AuthenticateFailureSessionStore, Err: err, Claims: claims}
	}
	if sess.UserID != claims.UID {
		return AuthenticateResult{Failure: AuthenticateFailureSessionMismatch, Claims: claims}
	}
	return AuthenticateResult{Claims: claims, Session: sess}
}
