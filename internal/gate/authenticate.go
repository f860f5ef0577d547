package gate

import (
	"context"
	"errors"
	"strings"

	"scribe.dev/internal/auth"
)

const bearer = "Bearer "

// TokenValidator turns token text into an identity.
type TokenValidator interface {
	Validate(text string) (auth.Identity, error)
}

// Authenticate validates the bearer token and attaches its identity to the context.
type Authenticate struct {
	tokens TokenValidator
}

// NewAuthenticate returns the authentication gate.
func NewAuthenticate(tokens TokenValidator) *Authenticate {
	return &Authenticate{tokens: tokens}
}

func (g *Authenticate) Name() string { return "authenticate" }

func (g *Authenticate) Check(ctx context.Context, req *Request) (context.Context, Decision) {
	token, err := extractBearerToken(req.Authorization())
	if err != nil {
		return ctx, deny(g.Name(), auth.ErrUnauthenticated, err.Error())
	}
	if g.tokens == nil {
		return ctx, deny(g.Name(), auth.ErrUnauthenticated, "token validator not configured")
	}
	identity, err := g.tokens.Validate(token)
	if err != nil {
		return ctx, deny(g.Name(), auth.ErrUnauthenticated, err.Error())
	}
	ctx = auth.ContextWithIdentity(ctx, identity)
	ctx = auth.ContextWithToken(ctx, token)
	return ctx, allow(g.Name())
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
