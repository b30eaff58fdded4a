package flows

import (
	"context"

	"github.com/MrEthical07/authd/jwt"
)

type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureInvalidToken
	LogoutFailureDelete
)

type LogoutSessionStore interface {
	Delete(ctx context.Context, sessionID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	VerifyAccessAllowExpired func(string) (*jwt.AccessClaims, jwt.VerifyStatus)
	SessionStore             LogoutSessionStore
}

type LogoutResult struct {
	Failure   LogoutFailureKind
	Err       error
	UserID    string
	SessionID string
}

// RunLogout deletes the session named by an access token. The token may be
// expired; its signature and audience must still check out. A session that is
// already gone is not an error.
func RunLogout(ctx context.Context, tokenStr string, deps LogoutDeps) LogoutResult {
	claims, status := deps.VerifyAccessAllowExpired(tokenStr)
	if status != jwt.StatusValid || claims == nil {
		return LogoutResult{Failure: LogoutFailureInvalidToken}
	}

	if err := deps.SessionStore.Delete(ctx, claims.SID); err != nil {
		return LogoutResult{
			Failure:   LogoutFailureDelete,
			Err:       err,
			UserID:    claims.UID,
			SessionID: claims.SID,
		}
	}
	return LogoutResult{UserID: claims.UID, SessionID: claims.SID}
}
