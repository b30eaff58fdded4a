// Package internal contains helpers that are private to authd: session id and
// verification code generation.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for every Engine operation
//   - stores: Redis-backed verification code ledger
//   - audit: asynchronous audit event dispatch
//   - httpapi: gin HTTP boundary
//   - config: viper-backed process configuration
//   - logging: slog setup and error reporting
//   - housekeeping: scheduled IP history cleanup
//
// # What this package must NOT do
//
//   - Export types that appear in the public authd API.
//   - Be imported by any package outside the authd module.
package internal
