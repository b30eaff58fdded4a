// Package authd is a credential and session lifecycle engine: account
// registration, email/password login, paired access and refresh tokens with
// rolling renewal, per-user IP history, and single-use verification codes for
// email verification and password reset.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authd is the public surface. It exposes [Engine], [Builder], [Config], the
// request/response DTOs and the [UserStore] and [Notifier] ports. Flow
// orchestration and the Redis verification ledger live under internal/ and
// are never exported. Sessions live in Redis through [session.Store]; users
// live wherever the injected [UserStore] keeps them.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Serialize password hashes or two-factor secrets (see [User.Public]).
//   - Import HTTP frameworks. The gin boundary lives in internal/httpapi and middleware.
//   - Import any sub-package that re-imports authd (no import cycles).
package authd
