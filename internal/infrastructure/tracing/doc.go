/*
Package tracing correlates bridge requests across host and shell logs.

Each request gets a trace ID, taken from the X-Trace-ID header when the
host sends one, or a fresh trc_<ULID> otherwise. The ID is echoed back in
the response header, stored on the request context and attached to the
access log line:

	router.Use(tracing.Middleware(logger))

	traceID := tracing.TraceID(c.Request.Context())
*/
package tracing
