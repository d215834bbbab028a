/*
Package resolver implements the request interception pipeline of the shell.

# Overview

Every resource the embedded page requests is offered to a Chain. The chain
asks its resolvers in registration order and returns the first non-nil
Response; nil means the web-view should fetch the resource itself.

Two resolvers are provided:

  - Override serves internal-scheme URLs from sandboxed storage. A matched
    URL whose file is missing yields a not-ready Response, never nil, so the
    request cannot leak into later resolvers.
  - VersionedCache serves URLs under a configured prefix from the active
    update bundle, or from packaged resources when no update is active.

# Lifecycle

A Chain starts unbound and only dispatches while bound:

	chain := resolver.NewChain(logger)
	chain.Register(override)
	chain.Register(cache)
	chain.Bind()
	defer chain.Unbind()

	if resp := chain.Dispatch(resolver.NewRequest(url)); resp != nil {
	    defer resp.Close()
	    // hand resp to the web-view
	}

Resolver faults stay inside the resolver: open failures are logged and
treated as misses, and a panicking resolver is recovered and skipped.
*/
package resolver
