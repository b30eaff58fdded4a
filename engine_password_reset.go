package authd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	internalflows "github.com/MrEthical07/authd/internal/flows"
	"github.com/MrEthical07/authd/password"
)

// errDelivery marks a notifier failure inside an internal error.
var errDelivery = errors.New("email delivery failed")

// SendPasswordReset issues a reset code for the account behind req.Email and
// emails a link carrying the code and its expiry. Requests beyond
// Policy.PasswordResetMaxPerWindow within Policy.PasswordResetWindow fail
// with ErrTooManyRequests. Unlike Register, a failed email fails the call.
func (e *Engine) SendPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	if err := e.ready(); err != nil {
		return err
	}

	res := e.flows.RequestPasswordReset(ctx, NormalizeEmail(req.Email))
	var err error
	switch res.Failure {
	case internalflows.PasswordResetRequestFailureNone:
	case internalflows.PasswordResetRequestFailureUserMissing:
		err = ErrAccountNotFound.with(res.Err)
	case internalflows.PasswordResetRequestFailureThrottled:
		e.metricInc(MetricPasswordResetThrottled)
		err = ErrTooManyRequests
	case internalflows.PasswordResetRequestFailureDispatch:
		err = internalError(fmt.Errorf("%w: %w", errDelivery, res.Err))
	default:
		err = internalError(res.Err)
	}
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequestFailure, false, res.UserID, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, res.UserID, "", nil, func() map[string]string {
		return map[string]string{"delivery_id": res.DeliveryID}
	})
	return nil
}

// ResetPassword redeems a password reset code, replaces the password and
// revokes every session of the user. Any failure before the password is
// replaced leaves existing sessions alone.
func (e *Engine) ResetPassword(ctx context.Context, req ResetPasswordRequest) (PublicUser, error) {
	if err := e.ready(); err != nil {
		return PublicUser{}, err
	}
	if req.Password != req.ConfirmPassword {
		e.metricInc(MetricPasswordResetConfirmFailure)
		return PublicUser{}, ErrPasswordMismatch
	}
	if err := checkPassword(req.Password); err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		return PublicUser{}, err
	}

	res := e.flows.ConfirmPasswordReset(ctx, internalflows.PasswordResetConfirmInput{
		Code:            strings.TrimSpace(req.VerificationCode),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		OldPassword:     req.OldPassword,
	})

	var err error
	switch res.Failure {
	case internalflows.PasswordResetConfirmFailureNone:
	case internalflows.PasswordResetConfirmFailureMismatch:
		err = ErrPasswordMismatch
	case internalflows.PasswordResetConfirmFailureCodeInvalid:
		err = ErrInvalidVerificationCode.with(res.Err)
	case internalflows.PasswordResetConfirmFailureUserMissing:
		err = ErrAccountNotFound.with(res.Err)
	case internalflows.PasswordResetConfirmFailureOldPassword:
		err = ErrOldPasswordMismatch
	case internalflows.PasswordResetConfirmFailureHash:
		err = internalError(res.Err)
		if errors.Is(res.Err, password.ErrEmptyPassword) || errors.Is(res.Err, password.ErrPasswordTooLong) {
			err = ErrInvalidPassword.with(res.Err)
		}
	default:
		err = internalError(res.Err)
	}
	if err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirmFailure, false, res.UserID, "", err, nil)
		return PublicUser{}, err
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.metricAdd(MetricSessionRevoked, res.SessionsRevoked)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, res.UserID, "", nil, func() map[string]string {
		return map[string]string{"sessions_revoked": fmt.Sprint(res.SessionsRevoked)}
	})

	return e.committedUser(ctx, res.UserID, PublicUser{ID: res.UserID}), nil
}
