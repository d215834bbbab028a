// Package logging provides structured logging using uber/zap.
//
// Two modes are offered:
//   - Production: JSON output for log collectors
//   - Development: Colored console output for human readability
//
// Resolver misses are logged at debug, storage faults that a resolver
// swallows at warn, and recovered resolver panics at error.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	chain := resolver.NewChain(logger.Component("chain"))
//	logger.Info("Shell starting", zap.String("port", "8765"))
package logging
