// Package httpapi is the gin HTTP boundary of the authd service. It binds and
// validates request bodies, calls the engine and translates results into
// JSON responses and auth cookies.
package httpapi
