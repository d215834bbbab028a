// Package webview is the host-facing controller for one embedded web-view.
//
// The host forwards every resource request to Intercept and every back
// gesture to CanGoBack/GoBack. Attach and Detach follow the host component's
// lifecycle; while detached the controller is inert.
package webview

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/navigation"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/resolver"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
)

// Options wires a Controller to its storage and host.
type Options struct {
	Translator paths.Translator
	// Sandbox reads app-private storage by absolute path.
	Sandbox resolver.Store
	// Files reads extracted update bundles by absolute path.
	Files resolver.Store
	// Bundle reads packaged resources by relative path.
	Bundle  resolver.Store
	Updates resolver.UpdateSource
	Cache   resolver.CacheConfig
	History navigation.History
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Controller owns the resolver chain and back delegate of one web-view.
type Controller struct {
	mu       sync.Mutex
	chain    *resolver.Chain
	override *resolver.Override
	cache    *resolver.VersionedCache
	nav      *navigation.Delegate
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// New builds a detached controller.
func New(opts Options) (*Controller, error) {
	if opts.Sandbox == nil || opts.Files == nil || opts.Bundle == nil {
		return nil, errors.New("webview: sandbox, files and bundle stores are required")
	}
	if opts.Updates == nil {
		return nil, errors.New("webview: update source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("webview")

	cache, err := resolver.NewVersionedCache(opts.Cache, opts.Updates, opts.Files, opts.Bundle, logger)
	if err != nil {
		return nil, err
	}

	chain := resolver.NewChain(logger.Named("chain"))
	if opts.Metrics != nil {
		chain.WithObserver(opts.Metrics)
	}

	return &Controller{
		chain:    chain,
		override: resolver.NewOverride(opts.Translator, opts.Sandbox, logger),
		cache:    cache,
		nav:      navigation.NewDelegate(opts.History, chain),
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Attach registers the resolvers in priority order and binds the chain.
// Attaching an attached controller does nothing.
func (c *Controller) Attach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chain.Bound() {
		return
	}
	c.chain.Reset()
	c.chain.Register(c.override)
	c.chain.Register(c.cache)
	c.chain.Bind()
	c.logger.Info("web-view attached", zap.Int("resolvers", c.chain.Len()))
}

// Detach unbinds the chain and drops its resolvers.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.chain.Unbind()
	c.chain.Reset()
	c.logger.Info("web-view detached")
}

// Bound reports whether the controller is attached.
func (c *Controller) Bound() bool {
	return c.chain.Bound()
}

// Intercept offers one resource request to the resolver chain. A nil result
// means the web-view performs its default network fetch. The caller owns the
// returned body.
func (c *Controller) Intercept(req resolver.Request) *resolver.Response {
	if !c.chain.Bound() {
		c.record(monitoring.InterceptUnbound)
		return nil
	}

	dispatchID := id.NewDispatchID()
	url, _ := req.URL()
	start := time.Now()

	resp := c.chain.Dispatch(req)

	if resp == nil {
		c.record(monitoring.InterceptFallthrough)
		c.logger.Debug("request falls through",
			zap.String("dispatch_id", dispatchID.String()),
			zap.String("url", url),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	c.record(monitoring.InterceptServed)
	c.logger.Debug("request intercepted",
		zap.String("dispatch_id", dispatchID.String()),
		zap.String("url", url),
		zap.Bool("ready", resp.Ready),
		zap.String("mime", resp.MimeType),
		zap.Duration("elapsed", time.Since(start)))
	return resp
}

func (c *Controller) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordIntercept(result)
	}
}

// SetBackHandler installs an external back handler; nil removes it.
func (c *Controller) SetBackHandler(h navigation.BackHandler) {
	c.nav.SetBackHandler(h)
}

// CanGoBack reports whether a back step is possible.
func (c *Controller) CanGoBack() bool {
	return c.nav.CanGoBack()
}

// GoBack performs one back step.
func (c *Controller) GoBack() {
	c.nav.GoBack()
}
