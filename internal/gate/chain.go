package gate

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/obs"
)

const tracerName = "scribe.dev/internal/gate"

// Chain runs gates in order and stops at the first denial.
type Chain struct {
	gates  []Gate
	tracer trace.Tracer
}

// Gates returns the names of the configured gates in evaluation order.
func (c *Chain) Gates() []string {
	names := make([]string, 0, len(c.gates))
	for _, g := range c.gates {
		names = append(names, g.Name())
	}
	return names
}

// Public reports whether the chain has no gates.
func (c *Chain) Public() bool { return c == nil || len(c.gates) == 0 }

// Evaluate runs the chain against req. The returned context carries whatever
// the gates attached (the caller identity) and is the one the handler must use.
func (c *Chain) Evaluate(req *Request) (context.Context, Decision) {
	ctx := req.Context()
	if c.Public() {
		return ctx, Decision{Allowed: true}
	}
	parent := trace.SpanFromContext(ctx)

	var last Decision
	for _, g := range c.gates {
		spanCtx, span := c.tracer.Start(ctx, "authz."+g.Name(),
			trace.WithAttributes(attribute.String("authz.gate", g.Name())))
		next, d := g.Check(spanCtx, req)
		if d.Gate == "" {
			d.Gate = g.Name()
		}
		obs.ObserveAuthzDecision(d.Gate, d.Allowed)
		span.SetAttributes(attribute.Bool("authz.allowed", d.Allowed))
		if !d.Allowed {
			if d.Err == nil {
				d.Err = auth.ErrForbidden
			}
			span.SetStatus(codes.Error, d.Err.Error())
			span.End()
			return ctx, d
		}
		span.SetStatus(codes.Ok, "")
		span.End()
		// keep the annotations, drop the finished gate span
		ctx = trace.ContextWithSpan(next, parent)
		last = d
	}
	return ctx, last
}

// Builder assembles a Chain. Authentication always runs first.
type Builder struct {
	authenticate Gate
	gates        []Gate
}

// NewBuilder starts an empty, public chain.
func NewBuilder() *Builder {
	return &Builder{}
}

// Authenticate requires a valid bearer token.
func (b *Builder) Authenticate(tokens TokenValidator) *Builder {
	b.authenticate = NewAuthenticate(tokens)
	return b
}

// RequireRoles admits only the listed roles. An empty list adds no gate.
func (b *Builder) RequireRoles(roles ...auth.Role) *Builder {
	if len(roles) == 0 {
		return b
	}
	b.gates = append(b.gates, NewRole(roles...))
	return b
}

// RequireSelf admits only the user addressed by param.
func (b *Builder) RequireSelf(users auth.UserLookup, param string) *Builder {
	b.gates = append(b.gates, NewSelf(users, param))
	return b
}

// RequireAuthor admits only the owner of the resource addressed by param.
func (b *Builder) RequireAuthor(users auth.UserLookup, resources auth.ResourceLookup, param string) *Builder {
	b.gates = append(b.gates, NewAuthor(users, resources, param))
	return b
}

// With appends a custom gate.
func (b *Builder) With(g Gate) *Builder {
	if g != nil {
		b.gates = append(b.gates, g)
	}
	return b
}

// Build returns the chain. The builder may be reused.
func (b *Builder) Build() *Chain {
	gates := make([]Gate, 0, len(b.gates)+1)
	if b.authenticate != nil {
		gates = append(gates, b.authenticate)
	}
	gates = append(gates, b.gates...)
	return &Chain{gates: gates, tracer: otel.Tracer(tracerName)}
}
