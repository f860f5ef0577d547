package memory

import (
	"context"
	"errors"
	"testing"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/blog"
	"scribe.dev/internal/users"
)

func TestUserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := users.User{Username: "ada", Email: "ada@example.com", Role: auth.RoleUser}
	if err := s.CreateUser(ctx, &a); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	dup := users.User{Username: "other", Email: "ada@example.com", Role: auth.RoleUser}
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, users.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	b := users.User{Username: "bob", Email: "bob@example.com", Role: auth.RoleUser}
	if err := s.CreateUser(ctx, &b); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	b.Username = "ada"
	if err := s.UpdateUser(ctx, b); !errors.Is(err, users.ErrConflict) {
		t.Fatalf("expected rename conflict, got %v", err)
	}
}

func TestListUsersFilterAndWindow(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, name := range []string{"alpha", "beta", "alphonse", "gamma"} {
		u := users.User{Username: name, Email: name + "@example.com", Role: auth.RoleUser}
		if err := s.CreateUser(ctx, &u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	items, total, err := s.ListUsers(ctx, users.Filter{Username: "ALPH"}, 1, 1)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 2 || len(items) != 1 || items[0].Username != "alphonse" {
		t.Fatalf("unexpected total=%d items=%+v", total, items)
	}
	items, _, _ = s.ListUsers(ctx, users.Filter{}, 10, 10)
	if len(items) != 0 {
		t.Fatalf("expected empty window, got %+v", items)
	}
}

func TestLookupsReflectCurrentState(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := users.User{Username: "ada", Email: "ada@example.com", PasswordHash: "h", Role: auth.RoleUser}
	if err := s.CreateUser(ctx, &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	e := blog.Entry{Title: "t", AuthorID: u.ID}
	if err := s.CreateEntry(ctx, &e); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	fact, err := s.FindOwnership(ctx, e.ID)
	if err != nil || fact.OwnerID != u.ID {
		t.Fatalf("FindOwnership: %+v %v", fact, err)
	}
	cred, err := s.FindCredentialByEmail(ctx, "ADA@example.com ")
	if err != nil || cred.UserID != u.ID || cred.PasswordHash != "h" {
		t.Fatalf("FindCredentialByEmail: %+v %v", cred, err)
	}

	u.Role = auth.RoleAdmin
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	id, err := s.FindIdentity(ctx, u.ID)
	if err != nil || id.Role != auth.RoleAdmin {
		t.Fatalf("FindIdentity: %+v %v", id, err)
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.FindIdentity(ctx, u.ID); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected auth.ErrNotFound, got %v", err)
	}
	if _, err := s.FindOwnership(ctx, e.ID); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("entries of a deleted user must go too, got %v", err)
	}
}

func TestUpdateEntryKeepsAuthor(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := blog.Entry{Title: "t", AuthorID: 1}
	if err := s.CreateEntry(ctx, &e); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	e.AuthorID = 2
	e.Title = "changed"
	if err := s.UpdateEntry(ctx, e); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	got, _ := s.GetEntry(ctx, e.ID)
	if got.AuthorID != 1 || got.Title != "changed" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if err := s.DeleteEntry(ctx, 99); !errors.Is(err, blog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWindowOutOfRange(t *testing.T) {
	items := []int{1, 2, 3}
	if got := window(items, 100, -100); got != nil {
		t.Fatalf("negative offset: got %v", got)
	}
	if got := window(items, 2, 5); got != nil {
		t.Fatalf("offset past end: got %v", got)
	}
	if got := window(items, 2, 1); len(got) != 2 || got[0] != 2 {
		t.Fatalf("window(2,1)=%v", got)
	}
}

func TestListUsersHugePage(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := users.User{Username: "ada", Email: "ada@example.com", Role: auth.RoleUser}
	if err := s.CreateUser(ctx, &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	got, total, err := s.ListUsers(ctx, users.Filter{}, 100, -100)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(got) != 0 || total != 1 {
		t.Fatalf("got %d items total %d", len(got), total)
	}
}
