// Package callerctx carries the identity and network origin of the caller
// behind one in-flight request.
//
// Values are set once by middleware at the request boundary and read by code
// that runs later in the same request but off the original call path (the
// lifecycle observer, most notably). The caller context rides the request's
// context.Context, never a package-level variable, so concurrent requests are
// isolated and worker reuse cannot leak one request's identity into the next.
//
// Usage in middleware (set values):
//
//	ctx = callerctx.Begin(ctx, callerctx.Caller{Actor: user, SourceAddress: ip, AgentString: ua})
//
// Usage in services (read values):
//
//	caller, ok := callerctx.Current(ctx)
package callerctx

import "context"

// MaxAgentLen bounds the stored User-Agent string. Clients control this header
// so it is truncated rather than trusted.
const MaxAgentLen = 500

// Caller is the identity/network metadata for one in-flight request.
// A zero Actor means the request is anonymous or system-initiated.
type Caller struct {
	Actor         string
	SourceAddress string
	AgentString   string
}

// Anonymous reports whether no authenticated actor is attached.
func (c Caller) Anonymous() bool { return c.Actor == "" }

type callerKey struct{}

// Begin installs the caller context for the current request. Any value
// inherited from an earlier request on a reused worker is replaced, not
// merged; Begin must run at the start of every request.
func Begin(ctx context.Context, c Caller) context.Context {
	c.AgentString = Truncate(c.AgentString, MaxAgentLen)
	return context.WithValue(ctx, callerKey{}, c)
}

// Current returns the caller context for this request. The second return is
// false when no context was established: callers must treat that as
// "attribute to no actor", never as a failure.
func Current(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// Truncate bounds s to max bytes. Ledger columns cap free-form client input.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
