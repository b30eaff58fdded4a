// Package stores provides the Redis-backed verification code ledger used by
// the email verification and password reset flows.
//
// # Design
//
// Each code is persisted as a versioned, binary-encoded record under a key
// derived from the SHA-256 of the code, with a Redis TTL equal to the code's
// lifetime. Consume runs a Lua script that reads, validates and deletes the
// record in one atomic step, so of any number of concurrent consumers exactly
// one wins. A per-user sorted set indexes issue times for rate limiting.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for codes. It does
// NOT decide throttling policy or send email; those belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import authd or any sibling internal package.
//   - Store plaintext codes in keys or values.
package stores
