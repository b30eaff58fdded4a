// Package audit implements async event dispatching for account and session
// lifecycle operations.
//
// # Components
//
//   - [Sink] is the event consumer interface (channel, JSON lines, slog, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event] is the structured audit record, identified by a ULID.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authd or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
