// Package session provides Redis-backed session persistence and a compact
// binary session encoding.
//
// # Binary encoding
//
// A session is stored as version(1) | userIDLen(1) | userID | ipLen(1) | ip |
// userAgentLen(2) | userAgent | createdAtMs(8) | expiresAtMs(8). ExpiresAt is
// always the final eight bytes so the extend script can rewrite it in place
// without decoding the rest.
//
// # Lifetime
//
// Each session key carries a Redis TTL equal to its remaining lifetime. A
// session whose ExpiresAt has passed is dead even if Redis still holds it;
// reads treat it as expired and remove it.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It
// does NOT interpret JWT tokens or decide when to roll a session; those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import authd or jwt (no upward imports).
//   - Store tokens or secrets in [Session] fields.
package session
