package authd

import (
	"context"
	"errors"
	"strings"

	internalflows "github.com/MrEthical07/authd/internal/flows"
	"github.com/MrEthical07/authd/password"
)

// Register creates an unverified email account and sends its verification
// link. A failed or unacknowledged email is logged and counted; the account
// is still created.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (PublicUser, error) {
	if err := e.ready(); err != nil {
		return PublicUser{}, err
	}
	if req.Password != req.ConfirmPassword {
		return PublicUser{}, ErrPasswordMismatch
	}
	if err := checkPassword(req.Password); err != nil {
		return PublicUser{}, err
	}

	email := NormalizeEmail(req.Email)
	res := e.flows.Register(ctx, internalflows.RegisterInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: req.Password,
		IP:       requestIP(ctx, req.IP),
	})

	var err error
	switch res.Failure {
	case internalflows.RegisterFailureNone:
	case internalflows.RegisterFailureExists:
		e.metricInc(MetricRegisterDuplicate)
		err = ErrEmailAlreadyExists
		if res.Err != nil {
			err = ErrEmailAlreadyExists.with(res.Err)
		}
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", err, nil)
		return PublicUser{}, err
	case internalflows.RegisterFailureHash:
		err = internalError(res.Err)
		if errors.Is(res.Err, password.ErrEmptyPassword) || errors.Is(res.Err, password.ErrPasswordTooLong) {
			err = ErrInvalidPassword.with(res.Err)
		}
	default:
		err = internalError(res.Err)
	}
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return PublicUser{}, err
	}

	e.metricInc(MetricRegisterSuccess)
	if !res.VerificationSent {
		e.metricInc(MetricVerificationEmailFailed)
		e.emitAudit(ctx, auditEventVerificationEmailFailed, false, res.UserID, "", errDelivery, nil)
	}
	e.emitAudit(ctx, auditEventRegisterSuccess, true, res.UserID, "", nil, func() map[string]string {
		meta := map[string]string{}
		if res.DeliveryID != "" {
			meta["delivery_id"] = res.DeliveryID
		}
		return meta
	})

	user, _ := res.Account.(*User)
	return user.Public(), nil
}
