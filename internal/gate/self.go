package gate

import (
	"context"
	"errors"
	"fmt"

	"scribe.dev/internal/auth"
)

// Self admits callers acting on their own user record, addressed by a path parameter.
// The target user is looked up on every request.
type Self struct {
	users auth.UserLookup
	param string
}

// NewSelf returns the self-ownership gate reading the user id from param.
func NewSelf(users auth.UserLookup, param string) *Self {
	if param == "" {
		param = "id"
	}
	return &Self{users: users, param: param}
}

func (g *Self) Name() string { return "self" }

func (g *Self) Check(ctx context.Context, req *Request) (context.Context, Decision) {
	identity, d, ok := identityOrDeny(ctx, g.Name())
	if !ok {
		return ctx, d
	}
	target, ok := pathID(req, g.param)
	if !ok {
		return ctx, deny(g.Name(), auth.ErrForbidden, fmt.Sprintf("invalid path parameter %q", g.param))
	}
	if identity.ID != target {
		return ctx, deny(g.Name(), auth.ErrForbidden, fmt.Sprintf("caller %d is not user %d", identity.ID, target))
	}
	if g.users == nil {
		return ctx, deny(g.Name(), auth.ErrForbidden, "user lookup not configured")
	}
	resolved, err := g.users.FindIdentity(ctx, target)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		return ctx, deny(g.Name(), auth.ErrResourceNotFound, fmt.Sprintf("user %d not found", target))
	case err != nil:
		return ctx, deny(g.Name(), auth.ErrForbidden, "user lookup failed: "+err.Error())
	case resolved.ID != identity.ID:
		return ctx, deny(g.Name(), auth.ErrForbidden, "resolved user does not match caller")
	}
	return ctx, allow(g.Name())
}
