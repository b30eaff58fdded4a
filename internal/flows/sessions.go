package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authd/session"
)

type RevokeSessionFailureKind int

const (
	RevokeSessionFailureNone RevokeSessionFailureKind = iota
	RevokeSessionFailureNotFound
	RevokeSessionFailureStore
)

type SessionAdminStore interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, sessionID string) error
	ListForUser(ctx context.Context, userID string) ([]*session.Session, error)
}

// SessionAdminDeps captures dependencies for listing and revoking sessions.
type SessionAdminDeps struct {
	SessionStore SessionAdminStore
}

func RunListSessions(ctx context.Context, userID string, deps SessionAdminDeps) ([]*session.Session, error) {
	return deps.SessionStore.ListForUser(ctx, userID)
}

// RunRevokeSession deletes sessionID if it belongs to userID. Sessions owned
// by someone else are reported as not found.
func RunRevokeSession(ctx context.Context, userID, sessionID string, deps SessionAdminDeps) (RevokeSessionFailureKind, error) {
	sess, err := deps.SessionStore.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) {
			return RevokeSessionFailureNotFound, err
		}
		return RevokeSessionFailureStore, err
	}
	if sess.UserID != userID {
		return RevokeSessionFailureNotFound, nil
	}
	if err := deps.SessionStore.Delete(ctx, sessionID); err != nil {
		return RevokeSessionFailureStore, err
	}
	return RevokeSessionFailureNone, nil
}
