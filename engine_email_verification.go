package authd

import (
	"context"
	"strings"

	internalflows "github.com/MrEthical07/authd/internal/flows"
)

// VerifyEmail redeems an email verification code and marks its owner
// verified. Codes are single-use; a second redemption fails with
// ErrInvalidVerificationCode.
func (e *Engine) VerifyEmail(ctx context.Context, code string) (PublicUser, error) {
	if err := e.ready(); err != nil {
		return PublicUser{}, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return PublicUser{}, ErrInvalidVerificationCode
	}

	res := e.flows.VerifyEmail(ctx, code)
	var err error
	switch res.Failure {
	case internalflows.VerifyEmailFailureNone:
	case internalflows.VerifyEmailFailureCodeInvalid:
		err = ErrInvalidVerificationCode.with(res.Err)
	case internalflows.VerifyEmailFailureUserMissing:
		err = ErrAccountNotFound.with(res.Err)
	default:
		err = internalError(res.Err)
	}
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationFailure, false, res.UserID, "", err, nil)
		return PublicUser{}, err
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventEmailVerificationSuccess, true, res.UserID, "", nil, nil)

	return e.committedUser(ctx, res.UserID, PublicUser{ID: res.UserID, Verified: true}), nil
}
