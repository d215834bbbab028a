package resolver

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the binding state of a Chain
type State int

const (
	StateUnbound State = iota
	StateBound
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	default:
		return "unknown"
	}
}

// Outcome classifies what one resolver did with one request.
type Outcome string

const (
	OutcomeHit      Outcome = "hit"
	OutcomeSentinel Outcome = "sentinel"
	OutcomeDeclined Outcome = "declined"
	OutcomePanic    Outcome = "panic"
)

// Observer receives one call per resolver consulted during a dispatch.
type Observer interface {
	ObserveResolve(resolver string, outcome Outcome, elapsed time.Duration)
}

// Named is implemented by resolvers that want a stable name in logs and metrics.
type Named interface {
	Name() string
}

type entry struct {
	name     string
	resolver Resolver
}

// Chain dispatches requests to resolvers in registration order until one
// returns a response. Dispatch is disabled unless the chain is bound.
type Chain struct {
	mu        sync.RWMutex
	state     State
	resolvers []entry
	logger    *zap.Logger
	observer  Observer
}

// NewChain creates an unbound, empty chain.
func NewChain(logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{logger: logger}
}

// WithObserver sets the observer notified of every resolver outcome.
func (c *Chain) WithObserver(o Observer) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
	return c
}

// Register appends r. Registration order is dispatch priority.
func (c *Chain) Register(r Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := fmt.Sprintf("resolver-%d", len(c.resolvers))
	if n, ok := r.(Named); ok {
		name = n.Name()
	}
	c.resolvers = append(c.resolvers, entry{name: name, resolver: r})
}

// Reset drops every registered resolver.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolvers = nil
}

// Bind enables dispatch.
func (c *Chain) Bind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateBound {
		return
	}
	c.state = StateBound
	c.logger.Debug("resolver chain bound", zap.Int("resolvers", len(c.resolvers)))
}

// Unbind disables dispatch. Registered resolvers are kept.
func (c *Chain) Unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUnbound {
		return
	}
	c.state = StateUnbound
	c.logger.Debug("resolver chain unbound")
}

// State returns the current binding state.
func (c *Chain) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Bound reports whether the chain is bound.
func (c *Chain) Bound() bool {
	return c.State() == StateBound
}

// Len returns the number of registered resolvers.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.resolvers)
}

// Dispatch runs req through the chain and returns the first non-nil
// response. It returns nil when the chain is unbound or every resolver
// declines; the host then falls back to its own network handling.
func (c *Chain) Dispatch(req Request) *Response {
	c.mu.RLock()
	if c.state != StateBound {
		c.mu.RUnlock()
		return nil
	}
	resolvers := c.resolvers
	observer := c.observer
	c.mu.RUnlock()

	for _, e := range resolvers {
		start := time.Now()
		resp, outcome := c.try(e, req)
		if observer != nil {
			observer.ObserveResolve(e.name, outcome, time.Since(start))
		}
		if resp != nil {
			return resp
		}
	}
	return nil
}

// try isolates one resolver: a panic counts as a decline.
func (c *Chain) try(e entry, req Request) (resp *Response, outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			url, _ := req.URL()
			c.logger.Error("resolver panicked",
				zap.String("resolver", e.name),
				zap.String("url", url),
				zap.Any("panic", r),
			)
			resp, outcome = nil, OutcomePanic
		}
	}()

	resp = e.resolver.Resolve(req)
	switch {
	case resp == nil:
		return nil, OutcomeDeclined
	case resp.Ready:
		return resp, OutcomeHit
	default:
		return resp, OutcomeSentinel
	}
}
