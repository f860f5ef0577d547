// Package gate evaluates per-route authorization chains. A chain is an ordered
// list of gates; the first denial is final and no gate is retried.
package gate

import (
	"context"
	"strconv"
	"strings"

	"scribe.dev/internal/auth"
)

// Request is the view of an inbound request that gates may inspect.
type Request struct {
	ctx           context.Context
	authorization string
	params        func(string) string
}

// NewRequest captures the Authorization header value and a path parameter
// accessor. params may be nil for routes without parameters.
func NewRequest(ctx context.Context, authorization string, params func(string) string) *Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Request{ctx: ctx, authorization: authorization, params: params}
}

// Context returns the context the request started with.
func (r *Request) Context() context.Context { return r.ctx }

// Authorization returns the raw Authorization header.
func (r *Request) Authorization() string { return r.authorization }

// Param returns a path parameter or "".
func (r *Request) Param(name string) string {
	if r.params == nil {
		return ""
	}
	return r.params(name)
}

// Decision is the outcome of a gate or a whole chain. Err is nil when Allowed,
// otherwise one of auth.ErrUnauthenticated, auth.ErrForbidden or
// auth.ErrResourceNotFound. Reason is for server logs only.
type Decision struct {
	Allowed bool
	Gate    string
	Reason  string
	Err     error
}

// Gate is one authorization step. Check returns the context later gates and the
// handler should see; only authentication adds to it.
type Gate interface {
	Name() string
	Check(ctx context.Context, req *Request) (context.Context, Decision)
}

func allow(gate string) Decision {
	return Decision{Allowed: true, Gate: gate}
}

func deny(gate string, class error, reason string) Decision {
	return Decision{Gate: gate, Reason: reason, Err: class}
}

func pathID(req *Request, param string) (int64, bool) {
	raw := strings.TrimSpace(req.Param(param))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func identityOrDeny(ctx context.Context, gate string) (auth.Identity, Decision, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Identity{}, deny(gate, auth.ErrUnauthenticated, "no authenticated identity"), false
	}
	return identity, Decision{}, true
}
