// Package navigation composes back-navigation for the embedded web-view.
package navigation

import "sync"

// History is the web-view's native back stack.
type History interface {
	CanGoBack() bool
	GoBack()
}

// BackHandler is an optional handler installed by the page host. When it
// can go back it takes precedence over native history.
type BackHandler interface {
	CanGoBack() bool
	GoBack()
}

// Lifecycle reports whether the owning controller is bound.
type Lifecycle interface {
	Bound() bool
}

// Target says who handles the next back step.
type Target int

const (
	TargetNone Target = iota
	TargetExternal
	TargetNative
)

// String returns the string representation of the target
func (t Target) String() string {
	switch t {
	case TargetNone:
		return "none"
	case TargetExternal:
		return "external"
	case TargetNative:
		return "native"
	default:
		return "unknown"
	}
}

// Delegate routes back navigation to the external handler or native history.
type Delegate struct {
	mu        sync.RWMutex
	native    History
	external  BackHandler
	lifecycle Lifecycle
}

// NewDelegate creates a delegate over native history. A nil lifecycle is
// treated as always bound.
func NewDelegate(native History, lifecycle Lifecycle) *Delegate {
	return &Delegate{native: native, lifecycle: lifecycle}
}

// SetBackHandler installs or, with nil, removes the external handler.
func (d *Delegate) SetBackHandler(h BackHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.external = h
}

// Target picks the handler for the next back step. The external handler is
// asked first; native history is only consulted when it declines.
func (d *Delegate) Target() Target {
	target, _, _ := d.choose()
	return target
}

func (d *Delegate) choose() (Target, BackHandler, History) {
	if d.lifecycle != nil && !d.lifecycle.Bound() {
		return TargetNone, nil, nil
	}

	d.mu.RLock()
	external, native := d.external, d.native
	d.mu.RUnlock()

	if external != nil && external.CanGoBack() {
		return TargetExternal, external, nil
	}
	if native != nil && native.CanGoBack() {
		return TargetNative, nil, native
	}
	return TargetNone, nil, nil
}

// CanGoBack reports whether a back step is possible.
func (d *Delegate) CanGoBack() bool {
	return d.Target() != TargetNone
}

// GoBack performs one back step on the chosen target.
func (d *Delegate) GoBack() {
	switch target, external, native := d.choose(); target {
	case TargetExternal:
		external.GoBack()
	case TargetNative:
		native.GoBack()
	}
}
