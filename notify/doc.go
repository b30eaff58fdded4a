// Package notify renders and delivers transactional email: the account
// verification link and the password reset link.
//
// [ResendSender] posts messages to the Resend HTTP API. [LogSender] writes
// them to a *slog.Logger and is meant for local development and tests.
// [VerificationEmail] and [PasswordResetEmail] build the message bodies.
//
// This package does not import authd. The engine depends on it, not the
// other way around.
package notify
