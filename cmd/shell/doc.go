// Package main is the entry point for the web shell bridge.
//
// The shell serves a page's resources from local storage instead of the
// network: internal-scheme URLs from the app sandbox, and URLs under a CDN
// prefix from the active hot-update bundle or packaged resources.
//
// Configuration:
//   - Environment variables (SHELL_*, PORT, HOST, LOG_*, METRICS_*, RATE_LIMIT_*)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Serve a CDN prefix from local copies
//	./shell -cache-prefix https://cdn.example.com/
//
//	# Development mode (colored logs, debug level)
//	./shell -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
