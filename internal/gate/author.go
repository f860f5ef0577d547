package gate

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"scribe.dev/internal/auth"
)

// Author admits the user that owns the resource addressed by a path parameter.
// Caller and resource are both resolved fresh on every request.
type Author struct {
	users     auth.UserLookup
	resources auth.ResourceLookup
	param     string
}

// NewAuthor returns the resource-author gate reading the resource id from param.
func NewAuthor(users auth.UserLookup, resources auth.ResourceLookup, param string) *Author {
	if param == "" {
		param = "id"
	}
	return &Author{users: users, resources: resources, param: param}
}

func (g *Author) Name() string { return "author" }

func (g *Author) Check(ctx context.Context, req *Request) (context.Context, Decision) {
	identity, d, ok := identityOrDeny(ctx, g.Name())
	if !ok {
		return ctx, d
	}
	resourceID, ok := pathID(req, g.param)
	if !ok {
		return ctx, deny(g.Name(), auth.ErrForbidden, fmt.Sprintf("invalid path parameter %q", g.param))
	}
	if g.users == nil || g.resources == nil {
		return ctx, deny(g.Name(), auth.ErrForbidden, "lookups not configured")
	}

	var (
		caller auth.Identity
		fact   auth.OwnershipFact
	)
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		var err error
		caller, err = g.users.FindIdentity(gctx, identity.ID)
		if err != nil {
			return fmt.Errorf("user %d: %w", identity.ID, err)
		}
		return nil
	})
	grp.Go(func() error {
		var err error
		fact, err = g.resources.FindOwnership(gctx, resourceID)
		if err != nil {
			return fmt.Errorf("resource %d: %w", resourceID, err)
		}
		return nil
	})
	if err := grp.Wait(); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return ctx, deny(g.Name(), auth.ErrResourceNotFound, err.Error())
		}
		return ctx, deny(g.Name(), auth.ErrForbidden, "lookup failed: "+err.Error())
	}

	if caller.ID != fact.OwnerID {
		return ctx, deny(g.Name(), auth.ErrForbidden, fmt.Sprintf("user %d does not own resource %d", caller.ID, resourceID))
	}
	return ctx, allow(g.Name())
}
