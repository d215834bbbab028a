/*
Package monitoring provides Prometheus metrics for the shell.

# Overview

Metrics cover the interception pipeline (per-resolver outcomes and
latency, final intercept results), update bundle state (active flag,
version switches, installs) and the loopback HTTP bridge.

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	// Observe every resolver the chain consults
	chain := resolver.NewChain(logger).WithObserver(metrics)

	// Add middleware to the bridge router
	router.Use(monitoring.Middleware(metrics))

# Metrics Endpoint

	router.GET("/_shell/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
