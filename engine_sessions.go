package authd

import (
	"context"

	internalflows "github.com/MrEthical07/authd/internal/flows"
)

// ListSessions returns the live sessions of userID, newest first. The entry
// matching currentSessionID is flagged as current.
func (e *Engine) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	sessions, err := e.flows.ListSessions(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			IP:        s.IP,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID == currentSessionID,
		})
	}
	return views, nil
}

// RevokeSession deletes one session of userID. Sessions that do not exist or
// belong to another user yield ErrSessionNotFound.
func (e *Engine) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	kind, err := e.flows.RevokeSession(ctx, userID, sessionID)
	switch kind {
	case internalflows.RevokeSessionFailureNone:
	case internalflows.RevokeSessionFailureNotFound:
		if err != nil {
			return ErrSessionNotFound.with(err)
		}
		return ErrSessionNotFound
	default:
		return internalError(err)
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, userID, sessionID, nil, nil)
	return nil
}
