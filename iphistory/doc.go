// Package iphistory maintains a user's bounded, recency-ordered list of the IP
// addresses they have authenticated from.
//
// Every function here is pure: it takes a history slice and returns a new one
// without mutating the input. Persisting the result is the caller's job, and
// concurrent writers follow last-write-wins semantics at the store.
//
// Ordering is by UpdatedAt descending. Ties are broken by CreatedAt
// descending, then by original position, so the output is deterministic.
package iphistory
