package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authd/internal/stores"
	"github.com/MrEthical07/authd/iphistory"
)

// RegisterFailureKind classifies register flow failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureExists
	RegisterFailureLookup
	RegisterFailureHash
	RegisterFailureCreate
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	IP       string
}

// RegisterResult reports the created user id and whether the verification
// notification went out. Notification problems never fail the flow.
type RegisterResult struct {
	Failure          RegisterFailureKind
	Err              error
	UserID           string
	Account          any
	Verification     *stores.VerificationRecord
	VerificationSent bool
	DeliveryID       string
}

// RegisterDeps captures register flow dependencies.
type RegisterDeps struct {
	EmailExists  func(ctx context.Context, email string) (bool, error)
	HashPassword func(string) (string, error)
	// CreateAccount persists the user and returns its id along with the
	// stored record. It must return an error matching AccountExists on a
	// unique-email violation.
	CreateAccount     func(ctx context.Context, in RegisterInput, passwordHash string, history []iphistory.Entry, now time.Time) (string, any, error)
	AccountExists     error
	IssueVerification func(ctx context.Context, userID string) (stores.VerificationRecord, error)
	SendVerification  func(ctx context.Context, in RegisterInput, record stores.VerificationRecord) (string, error)
	Warn              func(string, ...any)
	Now               func() time.Time
	IPHistoryLimit    int
}

// RunRegister creates an unverified account and issues its first email
// verification code.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) RegisterResult {
	exists, err := deps.EmailExists(ctx, in.Email)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureLookup, Err: err}
	}
	if exists {
		return RegisterResult{Failure: RegisterFailureExists}
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err}
	}

	now := deps.Now()
	history := iphistory.Record(nil, in.IP, now, deps.IPHistoryLimit)
	userID, account, err := deps.CreateAccount(ctx, in, hash, history, now)
	if err != nil {
		if deps.AccountExists != nil && errors.Is(err, deps.AccountExists) {
			return RegisterResult{Failure: RegisterFailureExists, Err: err}
		}
		return RegisterResult{Failure: RegisterFailureCreate, Err: err}
	}

	result := RegisterResult{UserID: userID, Account: account}

	record, err := deps.IssueVerification(ctx, userID)
	if err != nil {
		warn(deps.Warn, "authd: issue email verification code failed", "user_id", userID, "error", err)
		return result
	}
	result.Verification = &record

	deliveryID, err := deps.SendVerification(ctx, in, record)
	switch {
	case err != nil:
		warn(deps.Warn, "authd: send verification email failed", "user_id", userID, "error", err)
	case deliveryID == "":
		warn(deps.Warn, "authd: verification email returned no delivery id", "user_id", userID)
	default:
		result.VerificationSent = true
		result.DeliveryID = deliveryID
	}
	return result
}

func warn(fn func(string, ...any), msg string, args ...any) {
	if fn != nil {
		fn(msg, args...)
	}
}
