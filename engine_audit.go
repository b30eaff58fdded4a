package authd

import (
	"context"
	"errors"

	internalaudit "github.com/MrEthical07/authd/internal/audit"
)

const (
	auditEventRegisterSuccess             = "register_success"
	auditEventRegisterDuplicate           = "register_duplicate"
	auditEventRegisterFailure             = "register_failure"
	auditEventVerificationEmailFailed     = "verification_email_failed"
	auditEventLoginSuccess                = "login_success"
	auditEventLoginFailure                = "login_failure"
	auditEventLogout                      = "logout"
	auditEventRefreshSuccess              = "refresh_success"
	auditEventRefreshFailure              = "refresh_failure"
	auditEventEmailVerificationSuccess    = "email_verification_success"
	auditEventEmailVerificationFailure    = "email_verification_failure"
	auditEventPasswordResetRequest        = "password_reset_request"
	auditEventPasswordResetRequestFailure = "password_reset_request_failure"
	auditEventPasswordResetConfirm        = "password_reset_confirm"
	auditEventPasswordResetConfirmFailure = "password_reset_confirm_failure"
	auditEventSessionRevoked              = "session_revoked"
	auditEventIPHistoryCleanup            = "ip_history_cleanup"
)

// AuditErrorCode is the error classification recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnverified         AuditErrorCode = "account_unverified"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrInvalidCode        AuditErrorCode = "invalid_code"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrPasswordMismatch   AuditErrorCode = "password_mismatch"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	now := e.now().UTC()
	event := AuditEvent{
		ID:        internalaudit.NewEventID(now),
		Timestamp: now,
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrEmailNotVerified):
		return auditErrUnverified
	case errors.Is(err, ErrEmailAlreadyExists):
		return auditErrDuplicate
	case errors.Is(err, ErrSessionInvalid),
		errors.Is(err, ErrAccessTokenExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrInvalidAccessToken),
		errors.Is(err, ErrAuthenticationRequired):
		return auditErrInvalidToken
	case errors.Is(err, ErrInvalidVerificationCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrAccountNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrTooManyRequests):
		return auditErrRateLimited
	case errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrOldPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrInvalidPassword):
		return auditErrPasswordPolicy
	case errors.Is(err, errDelivery):
		return auditErrDeliveryFailed
	default:
		return auditErrInternal
	}
}
