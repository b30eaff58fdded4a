// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunResetPassword, etc.) accepts a
// typed dependency struct and returns a result carrying either the payload or
// a classified failure kind. The root engine maps failure kinds to its public
// error values, emits audit events and counts metrics.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, JWT manager,
// verification ledger and user persistence callbacks. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authd (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency fields.
package flows
