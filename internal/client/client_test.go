package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/blog"
	"scribe.dev/internal/client"
	"scribe.dev/internal/httpapi"
	"scribe.dev/internal/store/memory"
	"scribe.dev/internal/users"
)

func newServer(t *testing.T) *client.Client {
	t.Helper()
	store := memory.New()
	hasher := auth.NewHasher(auth.WithArgonParams(1, 8*1024, 1))
	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	api := httpapi.New(httpapi.ReadyProbe{Store: store}, "test", httpapi.Deps{
		Users:  users.NewService(store, hasher),
		Blog:   blog.NewService(store),
		Login:  auth.NewLoginService(store, store, hasher, tokens),
		Tokens: tokens,
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return client.New(srv.URL, client.WithHTTPClient(srv.Client()))
}

func status(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func TestClientFlow(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)

	if err := c.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	owner, err := c.Signup(ctx, client.Signup{Username: "owner", Email: "owner@example.com", Password: "password-owner"})
	if err != nil {
		t.Fatalf("Signup owner: %v", err)
	}
	if _, err := c.Signup(ctx, client.Signup{Username: "other", Email: "other@example.com", Password: "password-other"}); err != nil {
		t.Fatalf("Signup other: %v", err)
	}

	if _, err := c.Login(ctx, "owner@example.com", "wrong-password"); status(err) != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %v", err)
	}
	ownerTok, err := c.Login(ctx, "owner@example.com", "password-owner")
	if err != nil {
		t.Fatalf("Login owner: %v", err)
	}
	otherTok, err := c.Login(ctx, "other@example.com", "password-other")
	if err != nil {
		t.Fatalf("Login other: %v", err)
	}
	asOwner := c.WithToken(ownerTok)
	asOther := c.WithToken(otherTok)

	if _, err := asOther.UpdateProfile(ctx, owner.ID, "hijack", ""); status(err) != http.StatusForbidden {
		t.Fatalf("cross-user update: expected 403, got %v", err)
	}
	if _, err := c.UpdateProfile(ctx, owner.ID, "anon", ""); status(err) != http.StatusUnauthorized {
		t.Fatalf("anonymous update: expected 401, got %v", err)
	}
	u, err := asOwner.UpdateProfile(ctx, owner.ID, "Owner", "")
	if err != nil || u.Name != "Owner" {
		t.Fatalf("self update: %+v %v", u, err)
	}

	e, err := asOwner.CreateEntry(ctx, "First Post", "hello", true)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if e.AuthorID != owner.ID {
		t.Fatalf("author = %d, want %d", e.AuthorID, owner.ID)
	}
	if _, err := asOther.UpdateEntryTitle(ctx, e.ID, "mine now"); status(err) != http.StatusForbidden {
		t.Fatalf("foreign entry update: expected 403, got %v", err)
	}
	var apiErr *client.APIError
	err = asOther.DeleteEntry(ctx, e.ID)
	if !errors.As(err, &apiErr) || apiErr.Message != "not authorized" || apiErr.RequestID == "" {
		t.Fatalf("unexpected denial: %v", err)
	}
	if err := asOwner.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
}
