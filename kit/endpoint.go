// Package kit provides the endpoint and transport glue shared by every
// tool-facing surface of uiproof. An operation is written once as an
// Endpoint and mounted on HTTP and MCP without knowing which transport
// invoked it.
package kit

import "context"

// Endpoint is a transport-agnostic operation: typed request in, typed
// response out, explicit error.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is outermost:
// Chain(a, b, c)(ep) runs a before b before c before ep.
func Chain(outer Middleware, rest ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(rest) - 1; i >= 0; i-- {
			next = rest[i](next)
		}
		return outer(next)
	}
}
