package authd

import (
	"context"
	"time"

	internalflows "github.com/MrEthical07/authd/internal/flows"
	"github.com/MrEthical07/authd/iphistory"
)

// Login authenticates an email and password, records the caller's IP and
// opens a session. Unknown emails, non-email providers and wrong passwords
// all fail with ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if err := e.ready(); err != nil {
		return LoginResult{}, err
	}
	defer e.observeSince(MetricLoginLatency, time.Now())

	res := e.flows.Login(ctx, internalflows.LoginInput{
		Email:     NormalizeEmail(req.Email),
		Password:  req.Password,
		UserAgent: requestUserAgent(ctx, req.UserAgent),
		IP:        requestIP(ctx, req.IP),
	})

	var err error
	switch res.Failure {
	case internalflows.LoginFailureNone:
	case internalflows.LoginFailureInvalidCredentials:
		err = ErrInvalidCredentials
	case internalflows.LoginFailureUnverified:
		e.metricInc(MetricLoginUnverified)
		err = ErrEmailNotVerified
	default:
		err = internalError(res.Err)
	}
	if err != nil {
		e.metricInc(MetricLoginFailure)
		var sessionID string
		if res.Session != nil {
			sessionID = res.Session.ID
		}
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, sessionID, err, nil)
		return LoginResult{}, err
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, res.Session.ID, nil, nil)

	var user User
	if u, ok := res.Account.(*User); ok {
		user = *u
	}
	user.LastLogin = res.LoginAt
	user.LastIP = iphistory.Latest(res.IPHistory)
	user.IPHistory = res.IPHistory
	user.UpdatedAt = res.LoginAt

	return LoginResult{
		User:             user.Public(),
		SessionID:        res.Session.ID,
		AccessToken:      res.AccessToken,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt,
	}, nil
}

// Logout deletes the session named by accessToken. Expired tokens are
// accepted so a client can always sign out; a session that is already gone
// is not an error.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if accessToken == "" {
		return ErrAuthenticationRequired
	}

	res := e.flows.Logout(ctx, accessToken)
	switch res.Failure {
	case internalflows.LogoutFailureNone:
	case internalflows.LogoutFailureInvalidToken:
		e.emitAudit(ctx, auditEventLogout, false, "", "", ErrInvalidAccessToken, nil)
		return ErrInvalidAccessToken
	default:
		err := internalError(res.Err)
		e.emitAudit(ctx, auditEventLogout, false, res.UserID, res.SessionID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventLogout, true, res.UserID, res.SessionID, nil, nil)
	return nil
}

// Refresh trades a refresh token for a new access token. When the session is
// within the renewal threshold of its expiry it is extended and a new refresh
// token is returned as well.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	if err := e.ready(); err != nil {
		return RefreshResult{}, err
	}

	res := e.flows.Refresh(ctx, refreshToken)
	var err error
	switch res.Failure {
	case internalflows.RefreshFailureNone:
	case internalflows.RefreshFailureInvalidToken, internalflows.RefreshFailureSessionNotFound:
		err = ErrSessionInvalid
		if res.Err != nil {
			err = ErrSessionInvalid.with(res.Err)
		}
	default:
		err = internalError(res.Err)
	}
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, res.UserID, res.SessionID, err, func() map[string]string {
			return map[string]string{"token_status": res.TokenStatus.String()}
		})
		return RefreshResult{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	if res.Rolled {
		e.metricInc(MetricRefreshRolled)
	}
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.SessionID, nil, func() map[string]string {
		if res.Rolled {
			return map[string]string{"rolled": "true"}
		}
		return nil
	})

	return RefreshResult{
		AccessToken:      res.AccessToken,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt,
		Rolled:           res.Rolled,
		SessionExpiresAt: res.Session.ExpiresAt,
	}, nil
}

// Authenticate verifies an access token and checks that its session is still
// alive. An expired token or a revoked session yields ErrAccessTokenExpired;
// anything else that fails verification yields ErrInvalidAccessToken.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if err := e.ready(); err != nil {
		return Principal{}, err
	}
	if accessToken == "" {
		e.metricInc(MetricAuthenticateFailure)
		return Principal{}, ErrAuthenticationRequired
	}
	defer e.observeSince(MetricAuthenticateLatency, time.Now())

	res := e.flows.Authenticate(ctx, accessToken)
	var err error
	switch res.Failure {
	case internalflows.AuthenticateFailureNone:
	case internalflows.AuthenticateFailureExpired:
		err = ErrAccessTokenExpired
	case internalflows.AuthenticateFailureSessionNotFound:
		err = ErrAccessTokenExpired.with(res.Err)
	case internalflows.AuthenticateFailureInvalid, internalflows.AuthenticateFailureSessionMismatch:
		err = ErrInvalidAccessToken
	default:
		err = internalError(res.Err)
	}
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return Principal{}, err
	}

	e.metricInc(MetricAuthenticateSuccess)
	return Principal{UserID: res.Claims.UID, SessionID: res.Claims.SID}, nil
}
