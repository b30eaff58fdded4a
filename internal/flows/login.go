package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authd/iphistory"
	"github.com/MrEthical07/authd/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureLookup
	LoginFailureInvalidCredentials
	LoginFailureUnverified
	LoginFailureRecordLogin
	LoginFailureSession
	LoginFailureIssueAccess
	LoginFailureIssueRefresh
)

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
}

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure          LoginFailureKind
	Err              error
	UserID           string
	Account          any
	Session          *session.Session
	IPHistory        []iphistory.Entry
	LoginAt          time.Time
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type LoginSessionStore interface {
	Create(ctx context.Context, userID, userAgent, ip string, lifetime time.Duration) (*session.Session, error)
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	FindCredential  func(ctx context.Context, email string) (*Credential, error)
	UserNotFound    error
	ComparePassword func(plain, hash string) bool
	// DummyHash is compared against when the user does not exist so that
	// response time does not reveal account existence.
	DummyHash       string
	RequireVerified bool
	RecordLogin     func(ctx context.Context, userID, lastIP string, history []iphistory.Entry, at time.Time) error
	SessionStore    LoginSessionStore
	SessionLifetime time.Duration
	SignAccess      func(userID, sessionID string) (string, time.Time, error)
	SignRefresh     func(sessionID string) (string, time.Time, error)
	IPHistoryLimit  int
	Now             func() time.Time
}

// RunLogin authenticates an email/password pair, records the login IP,
// creates a session and mints both tokens. The IP history and session are
// written before any token is signed.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) LoginResult {
	cred, err := deps.FindCredential(ctx, in.Email)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			if deps.DummyHash != "" {
				_ = deps.ComparePassword(in.Password, deps.DummyHash)
			}
			return LoginResult{Failure: LoginFailureInvalidCredentials}
		}
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}

	if !cred.PasswordLogin || cred.PasswordHash == "" {
		return LoginResult{Failure: LoginFailureInvalidCredentials, UserID: cred.UserID}
	}
	if !deps.ComparePassword(in.Password, cred.PasswordHash) {
		return LoginResult{Failure: LoginFailureInvalidCredentials, UserID: cred.UserID}
	}
	if deps.RequireVerified && !cred.Verified {
		return LoginResult{Failure: LoginFailureUnverified, UserID: cred.UserID}
	}

	now := deps.Now()
	history := iphistory.Record(cred.IPHistory, in.IP, now, deps.IPHistoryLimit)
	if err := deps.RecordLogin(ctx, cred.UserID, in.IP, history, now); err != nil {
		return LoginResult{Failure: LoginFailureRecordLogin, Err: err, UserID: cred.UserID}
	}

	sess, err := deps.SessionStore.Create(ctx, cred.UserID, in.UserAgent, in.IP, deps.SessionLifetime)
	if err != nil {
		return LoginResult{Failure: LoginFailureSession, Err: err, UserID: cred.UserID}
	}

	result := LoginResult{
		UserID:    cred.UserID,
		Account:   cred.Account,
		Session:   sess,
		IPHistory: history,
		LoginAt:   now,
	}

	result.AccessToken, result.AccessExpiresAt, err = deps.SignAccess(cred.UserID, sess.ID)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssueAccess, Err: err, UserID: cred.UserID, Session: sess}
	}
	result.RefreshToken, result.RefreshExpiresAt, err = deps.SignRefresh(sess.ID)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssueRefresh, Err: err, UserID: cred.UserID, Session: sess}
	}
	return result
}
