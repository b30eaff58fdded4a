package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authd/internal/stores"
)

type VerifyEmailFailureKind int

const (
	VerifyEmailFailureNone VerifyEmailFailureKind = iota
	VerifyEmailFailureCodeInvalid
	VerifyEmailFailureLedger
	VerifyEmailFailureUserMissing
	VerifyEmailFailureUpdate
)

type VerifyEmailResult struct {
	Failure VerifyEmailFailureKind
	Err     error
	UserID  string
}

type VerificationConsumer interface {
	Consume(ctx context.Context, code string, kind stores.VerificationType) (stores.VerificationRecord, error)
}

// VerifyEmailDeps captures email verification flow dependencies.
type VerifyEmailDeps struct {
	Ledger       VerificationConsumer
	MarkVerified func(ctx context.Context, userID string) error
	UserNotFound error
}

// RunVerifyEmail consumes an email verification code and marks its owner
// verified. Marking an already verified user is a no-op at the store.
func RunVerifyEmail(ctx context.Context, code string, deps VerifyEmailDeps) VerifyEmailResult {
	record, err := deps.Ledger.Consume(ctx, code, stores.EmailVerification)
	if err != nil {
		if errors.Is(err, stores.ErrVerificationNotFound) {
			return VerifyEmailResult{Failure: VerifyEmailFailureCodeInvalid, Err: err}
		}
		return VerifyEmailResult{Failure: VerifyEmailFailureLedger, Err: err}
	}

	if err := deps.MarkVerified(ctx, record.UserID); err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return VerifyEmailResult{Failure: VerifyEmailFailureUserMissing, Err: err, UserID: record.UserID}
		}
		return VerifyEmailResult{Failure: VerifyEmailFailureUpdate, Err: err, UserID: record.UserID}
	}
	return VerifyEmailResult{UserID: record.UserID}
}
