package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authd/internal/stores"
)

// ErrMissingDeliveryID is reported when the notifier accepted a reset email
// without returning a delivery id.
var ErrMissingDeliveryID = errors.New("notification returned no delivery id")

type PasswordResetRequestFailureKind int

const (
	PasswordResetRequestFailureNone PasswordResetRequestFailureKind = iota
	PasswordResetRequestFailureUserMissing
	PasswordResetRequestFailureLookup
	PasswordResetRequestFailureThrottled
	PasswordResetRequestFailureLedger
	PasswordResetRequestFailureDispatch
)

type PasswordResetRequestResult struct {
	Failure    PasswordResetRequestFailureKind
	Err        error
	UserID     string
	Record     *stores.VerificationRecord
	DeliveryID string
}

type ResetLedger interface {
	Issue(ctx context.Context, userID string, kind stores.VerificationType, ttl time.Duration) (stores.VerificationRecord, error)
	Consume(ctx context.Context, code string, kind stores.VerificationType) (stores.VerificationRecord, error)
	CountRecent(ctx context.Context, userID string, kind stores.VerificationType, window time.Duration) (int, error)
}

// PasswordResetRequestDeps captures dependencies for issuing a reset code.
type PasswordResetRequestDeps struct {
	FindCredential func(ctx context.Context, email string) (*Credential, error)
	UserNotFound   error
	Ledger         ResetLedger
	CodeTTL        time.Duration
	Window         time.Duration
	MaxPerWindow   int
	SendReset      func(ctx context.Context, cred *Credential, record stores.VerificationRecord) (string, error)
}

// RunRequestPasswordReset issues a password reset code and emails it. At most
// MaxPerWindow codes are issued per user per Window. Unlike registration, a
// failed or unacknowledged dispatch fails the flow.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetRequestDeps) PasswordResetRequestResult {
	cred, err := deps.FindCredential(ctx, email)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return PasswordResetRequestResult{Failure: PasswordResetRequestFailureUserMissing, Err: err}
		}
		return PasswordResetRequestResult{Failure: PasswordResetRequestFailureLookup, Err: err}
	}

	limit := max(deps.MaxPerWindow, 1)
	recent, err := deps.Ledger.CountRecent(ctx, cred.UserID, stores.PasswordReset, deps.Window)
	if err != nil {
		return PasswordResetRequestResult{Failure: PasswordResetRequestFailureLedger, Err: err, UserID: cred.UserID}
	}
	if recent >= limit {
		return PasswordResetRequestResult{Failure: PasswordResetRequestFailureThrottled, UserID: cred.UserID}
	}

	record, err := deps.Ledger.Issue(ctx, cred.UserID, stores.PasswordReset, deps.CodeTTL)
	if err != nil {
		return PasswordResetRequestResult{Failure: PasswordResetRequestFailureLedger, Err: err, UserID: cred.UserID}
	}

	deliveryID, err := deps.SendReset(ctx, cred, record)
	if err == nil && deliveryID == "" {
		err = ErrMissingDeliveryID
	}
	if err != nil {
		return PasswordResetRequestResult{
			Failure: PasswordResetRequestFailureDispatch,
			Err:     err,
			UserID:  cred.UserID,
			Record:  &record,
		}
	}
	return PasswordResetRequestResult{UserID: cred.UserID, Record: &record, DeliveryID: deliveryID}
}

type PasswordResetConfirmFailureKind int

const (
	PasswordResetConfirmFailureNone PasswordResetConfirmFailureKind = iota
	PasswordResetConfirmFailureMismatch
	PasswordResetConfirmFailureCodeInvalid
	PasswordResetConfirmFailureLedger
	PasswordResetConfirmFailureUserMissing
	PasswordResetConfirmFailureLookup
	PasswordResetConfirmFailureOldPassword
	PasswordResetConfirmFailureHash
	PasswordResetConfirmFailureUpdate
	PasswordResetConfirmFailureRevoke
)

type PasswordResetConfirmInput struct {
	Code            string
	Password        string
	ConfirmPassword string
	OldPassword     string
}

type PasswordResetConfirmResult struct {
	Failure         PasswordResetConfirmFailureKind
	Err             error
	UserID          string
	SessionsRevoked int
}

type ResetSessionStore interface {
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}

// PasswordResetConfirmDeps captures dependencies for redeeming a reset code.
type PasswordResetConfirmDeps struct {
	Ledger             ResetLedger
	FindCredentialByID func(ctx context.Context, userID string) (*Credential, error)
	UserNotFound       error
	RequireOldPassword bool
	ComparePassword    func(plain, hash string) bool
	HashPassword       func(string) (string, error)
	UpdatePassword     func(ctx context.Context, userID, hash string) error
	SessionStore       ResetSessionStore
}

// RunConfirmPasswordReset redeems a reset code, replaces the password hash and
// revokes every session of the user. Failures before the hash is replaced
// leave sessions untouched.
func RunConfirmPasswordReset(ctx context.Context, in PasswordResetConfirmInput, deps PasswordResetConfirmDeps) PasswordResetConfirmResult {
	if in.Password != in.ConfirmPassword {
		return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureMismatch}
	}

	record, err := deps.Ledger.Consume(ctx, in.Code, stores.PasswordReset)
	if err != nil {
		if errors.Is(err, stores.ErrVerificationNotFound) {
			return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureCodeInvalid, Err: err}
		}
		return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureLedger, Err: err}
	}
	userID := record.UserID

	cred, err := deps.FindCredentialByID(ctx, userID)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureUserMissing, Err: err, UserID: userID}
		}
		return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureLookup, Err: err, UserID: userID}
	}

	if deps.RequireOldPassword && !deps.ComparePassword(in.OldPassword, cred.PasswordHash) {
		return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureOldPassword, UserID: userID}
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureHash, Err: err, UserID: userID}
	}
	if err := deps.UpdatePassword(ctx, userID, hash); err != nil {
		return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureUpdate, Err: err, UserID: userID}
	}

	revoked, err := deps.SessionStore.DeleteAllForUser(ctx, userID)
	if err != nil {
		return PasswordResetConfirmResult{Failure: PasswordResetConfirmFailureRevoke, Err: err, UserID: userID}
	}
	return PasswordResetConfirmResult{UserID: userID, SessionsRevoked: revoked}
}
