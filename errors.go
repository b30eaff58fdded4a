package authd

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned by UserStore implementations when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned by UserStore.Create on a duplicate email.
	ErrUserExists = errors.New("user already exists")
	// ErrEngineNotReady is returned when an Engine method runs on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrNotifierRequired is returned by Build when no Notifier is configured.
	ErrNotifierRequired = errors.New("notifier required")
	// ErrUserStoreRequired is returned by Build when no UserStore is configured.
	ErrUserStoreRequired = errors.New("user store required")
	// ErrRedisRequired is returned by Build when no Redis client is configured.
	ErrRedisRequired = errors.New("redis client required")
)

// Kind classifies an engine failure. Transport layers map kinds to status codes.
type Kind uint8

const (
	KindInternal Kind = iota
	KindConflict
	KindUnauthorized
	KindNotFound
	KindTooManyRequests
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal_error"
	}
}

// Code is a stable machine-readable error code shown to clients.
type Code string

const (
	CodeEmailAlreadyExists               Code = "AuthEmailAlreadyExists"
	CodeInvalidCredentials               Code = "AuthInvalidCredentials"
	CodeEmailNotVerified                 Code = "AuthEmailNotVerified"
	CodeSessionExpired                   Code = "AuthSessionExpired"
	CodeInvalidAccessToken               Code = "InvalidAccessToken"
	CodeInvalidOrExpiredVerificationCode Code = "InvalidOrExpiredVerificationCode"
	CodePasswordMismatch                 Code = "AuthPasswordMismatch"
)

const (
	msgUserExists          = "User already exists with this email."
	msgInvalidCredentials  = "Invalid credentials or incorrect login provider."
	msgEmailNotVerified    = "Email verification is required before logging in, please check your email."
	msgSessionInvalid      = "Session expired or invalid. Please log in again."
	msgInvalidCode         = "Invalid or expired verification code."
	msgUserNotFound        = "User not found."
	msgTooManyRequests     = "Too many requests, please try again later."
	msgInvalidAccessToken  = "Invalid access token."
	msgAccessTokenExpired  = "Session expired."
	msgSessionNotFound     = "Session not found."
	msgPasswordMismatch    = "Passwords do not match."
	msgOldPasswordMismatch = "Current password is incorrect."
	msgAuthRequired        = "Authentication required."
	msgInvalidPassword     = "Password must be between 1 and 72 bytes."
)

// InternalErrorMessage is the only message shown to clients for KindInternal.
const InternalErrorMessage = "Internal server error."

// Error is the classified failure returned by Engine operations. Message is
// safe to show to clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Code    Code
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and Code so callers can compare against
// the exported sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && (t.Message == "" || t.Message == e.Message)
}

func internalError(cause error) *Error {
	return ErrInternal.with(cause)
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrEmailAlreadyExists      = &Error{Kind: KindConflict, Code: CodeEmailAlreadyExists, Message: msgUserExists}
	ErrInvalidCredentials      = &Error{Kind: KindUnauthorized, Code: CodeInvalidCredentials, Message: msgInvalidCredentials}
	ErrEmailNotVerified        = &Error{Kind: KindUnauthorized, Code: CodeEmailNotVerified, Message: msgEmailNotVerified}
	ErrSessionInvalid          = &Error{Kind: KindUnauthorized, Code: CodeSessionExpired, Message: msgSessionInvalid}
	ErrInvalidAccessToken      = &Error{Kind: KindUnauthorized, Code: CodeInvalidAccessToken, Message: msgInvalidAccessToken}
	ErrAccessTokenExpired      = &Error{Kind: KindUnauthorized, Code: CodeInvalidAccessToken, Message: msgAccessTokenExpired}
	ErrInvalidVerificationCode = &Error{Kind: KindNotFound, Code: CodeInvalidOrExpiredVerificationCode, Message: msgInvalidCode}
	ErrAccountNotFound         = &Error{Kind: KindNotFound, Message: msgUserNotFound}
	ErrTooManyRequests         = &Error{Kind: KindTooManyRequests, Message: msgTooManyRequests}
	ErrSessionNotFound         = &Error{Kind: KindNotFound, Message: msgSessionNotFound}
	ErrPasswordMismatch        = &Error{Kind: KindBadRequest, Code: CodePasswordMismatch, Message: msgPasswordMismatch}
	ErrOldPasswordMismatch     = &Error{Kind: KindBadRequest, Code: CodeInvalidCredentials, Message: msgOldPasswordMismatch}
	ErrAuthenticationRequired  = &Error{Kind: KindUnauthorized, Code: CodeInvalidAccessToken, Message: msgAuthRequired}
	ErrInvalidPassword         = &Error{Kind: KindBadRequest, Message: msgInvalidPassword}
	ErrInternal                = &Error{Kind: KindInternal, Message: InternalErrorMessage}
)

// with returns a copy of e carrying cause. Sentinels are never mutated.
func (e *Error) with(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}
