package gate

import (
	"context"
	"fmt"

	"scribe.dev/internal/auth"
)

// Role admits callers whose authenticated role is in a fixed set.
type Role struct {
	allowed map[auth.Role]struct{}
}

// NewRole returns a role gate. A gate built with no roles admits nobody.
func NewRole(roles ...auth.Role) *Role {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return &Role{allowed: allowed}
}

func (g *Role) Name() string { return "role" }

func (g *Role) Check(ctx context.Context, _ *Request) (context.Context, Decision) {
	identity, d, ok := identityOrDeny(ctx, g.Name())
	if !ok {
		return ctx, d
	}
	if _, ok := g.allowed[identity.Role]; !ok {
		return ctx, deny(g.Name(), auth.ErrForbidden, fmt.Sprintf("role %q not permitted", identity.Role))
	}
	return ctx, allow(g.Name())
}
