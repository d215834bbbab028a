// Package middleware provides the gin middleware of the loopback bridge:
// CORS for intercepted resources and per-client rate limiting for the
// admin routes.
package middleware
