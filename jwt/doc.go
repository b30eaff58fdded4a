// Package jwt issues and verifies the paired access and refresh tokens used by
// the authd engine.
//
// Access and refresh tokens are HS256-signed with two distinct secrets, so a
// refresh token can never be replayed as an access token and vice versa. Both
// carry the configured audience (default "user").
//
// # Verification
//
// Verification never returns Go errors for untrusted input. Each Verify*
// method returns a [VerifyStatus]:
//
//   - [StatusValid]: signature, algorithm, audience, issuer and expiry all pass.
//   - [StatusExpired]: the signature is valid but the exp claim has passed.
//   - [StatusInvalid]: anything else (malformed, wrong key, wrong audience).
//
// [Manager.VerifyAccessAllowExpired] checks the signature and audience but
// ignores expiry. It exists for logout, where an expired access token must
// still identify the session to delete.
//
// # What this package must NOT do
//
//   - Touch Redis or any session state.
//   - Decide whether a session is alive; callers consult the session store.
package jwt
