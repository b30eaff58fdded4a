// Package middleware adapts authd.Engine to gin.
//
// [Authenticate] reads the access token from the accessToken cookie or a
// Bearer header, calls Engine.Authenticate and stores the principal on both
// the gin context and the request context. With TrackIP set it also records
// the caller's address in the user's IP history on every request.
//
// [RequestContext] copies the client IP and User-Agent into the request
// context so the engine can stamp audit events. [RequestID], [Logger] and
// [Recovery] are the usual request plumbing, logging through slog.
//
// Authentication decisions are made by the engine only; this package parses
// no tokens and touches no storage.
package middleware
