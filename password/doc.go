// Package password implements password hashing and comparison with bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt modular-crypt strings:
//
//	$2a$<cost>$<22-char salt><31-char hash>
//
// The default cost is 10. [Bcrypt.NeedsRehash] reports hashes produced with a
// different cost so callers can re-hash after the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and comparison only. Password policy (length,
// confirmation) is enforced at the HTTP boundary and by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other authd package.
//   - Log plaintext passwords or hashes.
package password
