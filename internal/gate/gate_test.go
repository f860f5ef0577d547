package gate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"scribe.dev/internal/auth"
)

type fakeTokens map[string]auth.Identity

func (f fakeTokens) Validate(text string) (auth.Identity, error) {
	switch text {
	case "expired":
		return auth.Identity{}, auth.ErrTokenExpired
	case "tampered":
		return auth.Identity{}, auth.ErrTokenSignatureInvalid
	}
	id, ok := f[text]
	if !ok {
		return auth.Identity{}, auth.ErrTokenMalformed
	}
	return id, nil
}

type fakeUsers struct {
	identities map[int64]auth.Identity
	err        error
	calls      atomic.Int32
}

func (f *fakeUsers) FindIdentity(_ context.Context, id int64) (auth.Identity, error) {
	f.calls.Add(1)
	if f.err != nil {
		return auth.Identity{}, f.err
	}
	i, ok := f.identities[id]
	if !ok {
		return auth.Identity{}, auth.ErrNotFound
	}
	return i, nil
}

type fakeEntries struct {
	owners map[int64]int64
	err    error
}

func (f *fakeEntries) FindOwnership(_ context.Context, id int64) (auth.OwnershipFact, error) {
	if f.err != nil {
		return auth.OwnershipFact{}, f.err
	}
	owner, ok := f.owners[id]
	if !ok {
		return auth.OwnershipFact{}, auth.ErrNotFound
	}
	return auth.OwnershipFact{ResourceID: id, OwnerID: owner}, nil
}

var (
	alice = auth.Identity{ID: 1, Role: auth.RoleUser}
	bob   = auth.Identity{ID: 2, Role: auth.RoleUser}
	root  = auth.Identity{ID: 3, Role: auth.RoleAdmin}

	tokens = fakeTokens{"alice": alice, "bob": bob, "root": root}
)

func newUsers() *fakeUsers {
	return &fakeUsers{identities: map[int64]auth.Identity{1: alice, 2: bob, 3: root}}
}

func params(kv map[string]string) func(string) string {
	return func(name string) string { return kv[name] }
}

func request(header string, kv map[string]string) *Request {
	return NewRequest(context.Background(), header, params(kv))
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	chain := NewBuilder().Authenticate(tokens).Build()
	ctx, d := chain.Evaluate(request("Bearer alice", nil))
	if !d.Allowed {
		t.Fatalf("expected allow, got %+v", d)
	}
	got, ok := auth.IdentityFromContext(ctx)
	if !ok || got != alice {
		t.Fatalf("identity not attached: %+v ok=%v", got, ok)
	}
	if tok, _ := auth.TokenFromContext(ctx); tok != "alice" {
		t.Fatalf("token not attached: %q", tok)
	}
}

func TestAuthenticateSchemeIsCaseInsensitive(t *testing.T) {
	chain := NewBuilder().Authenticate(tokens).Build()
	if _, d := chain.Evaluate(request("bearer   alice ", nil)); !d.Allowed {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	chain := NewBuilder().Authenticate(tokens).Build()
	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer garbage", "Bearer expired", "Bearer tampered"} {
		ctx, d := chain.Evaluate(request(header, nil))
		if d.Allowed {
			t.Fatalf("%q: expected deny", header)
		}
		if d.Err != auth.ErrUnauthenticated {
			t.Fatalf("%q: expected bare ErrUnauthenticated class, got %v", header, d.Err)
		}
		if d.Gate != "authenticate" {
			t.Fatalf("%q: unexpected gate %q", header, d.Gate)
		}
		if _, ok := auth.IdentityFromContext(ctx); ok {
			t.Fatalf("%q: identity must not be attached on deny", header)
		}
	}
}

func TestRoleGate(t *testing.T) {
	chain := NewBuilder().Authenticate(tokens).RequireRoles(auth.RoleAdmin).Build()
	if _, d := chain.Evaluate(request("Bearer root", nil)); !d.Allowed {
		t.Fatalf("admin should pass: %+v", d)
	}
	_, d := chain.Evaluate(request("Bearer alice", nil))
	if d.Allowed || !errors.Is(d.Err, auth.ErrForbidden) || d.Gate != "role" {
		t.Fatalf("user should be forbidden: %+v", d)
	}
}

func TestRoleGateFailsClosedWithoutIdentity(t *testing.T) {
	_, d := NewRole(auth.RoleAdmin).Check(context.Background(), request("", nil))
	if d.Allowed || !errors.Is(d.Err, auth.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated deny, got %+v", d)
	}
	ctx := auth.ContextWithIdentity(context.Background(), root)
	if _, d := NewRole().Check(ctx, request("", nil)); d.Allowed {
		t.Fatal("gate with no roles must admit nobody")
	}
}

func TestBuilderSkipsEmptyRoleSet(t *testing.T) {
	chain := NewBuilder().Authenticate(tokens).RequireRoles().Build()
	if got := chain.Gates(); len(got) != 1 || got[0] != "authenticate" {
		t.Fatalf("unexpected gates %v", got)
	}
}

func TestBuilderPlacesAuthenticateFirst(t *testing.T) {
	chain := NewBuilder().RequireSelf(newUsers(), "id").RequireRoles(auth.RoleUser).Authenticate(tokens).Build()
	want := []string{"authenticate", "self", "role"}
	got := chain.Gates()
	if len(got) != len(want) {
		t.Fatalf("gates=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("gates=%v, want %v", got, want)
		}
	}
}

func TestPublicChainAllows(t *testing.T) {
	chain := NewBuilder().Build()
	if !chain.Public() {
		t.Fatal("empty chain should be public")
	}
	if _, d := chain.Evaluate(request("", nil)); !d.Allowed {
		t.Fatalf("public chain must allow, got %+v", d)
	}
}

func TestSelfGate(t *testing.T) {
	users := newUsers()
	chain := NewBuilder().Authenticate(tokens).RequireSelf(users, "id").Build()

	if _, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "1"})); !d.Allowed {
		t.Fatalf("own profile should pass: %+v", d)
	}

	_, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "2"}))
	if d.Allowed || !errors.Is(d.Err, auth.ErrForbidden) {
		t.Fatalf("other profile must be forbidden: %+v", d)
	}

	for _, raw := range []string{"", "abc", "-1", "0", "1.5"} {
		_, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": raw}))
		if d.Allowed {
			t.Fatalf("id %q should be rejected", raw)
		}
	}
}

func TestSelfGateRevalidatesAccount(t *testing.T) {
	users := newUsers()
	delete(users.identities, 1)
	chain := NewBuilder().Authenticate(tokens).RequireSelf(users, "id").Build()
	_, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "1"}))
	if d.Allowed || !errors.Is(d.Err, auth.ErrResourceNotFound) {
		t.Fatalf("deleted account must be denied: %+v", d)
	}

	users = newUsers()
	users.err = errors.New("db down")
	chain = NewBuilder().Authenticate(tokens).RequireSelf(users, "id").Build()
	_, d = chain.Evaluate(request("Bearer alice", map[string]string{"id": "1"}))
	if d.Allowed || !errors.Is(d.Err, auth.ErrForbidden) {
		t.Fatalf("lookup failure must fail closed: %+v", d)
	}
}

func TestAuthorGate(t *testing.T) {
	users := newUsers()
	entries := &fakeEntries{owners: map[int64]int64{10: 1, 11: 2}}
	chain := NewBuilder().Authenticate(tokens).RequireAuthor(users, entries, "id").Build()

	if _, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "10"})); !d.Allowed {
		t.Fatalf("author should pass: %+v", d)
	}

	_, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "11"}))
	if d.Allowed || !errors.Is(d.Err, auth.ErrForbidden) {
		t.Fatalf("non-author must be forbidden: %+v", d)
	}

	_, d = chain.Evaluate(request("Bearer root", map[string]string{"id": "11"}))
	if d.Allowed {
		t.Fatal("admin role does not grant authorship")
	}

	_, d = chain.Evaluate(request("Bearer alice", map[string]string{"id": "99"}))
	if d.Allowed || !errors.Is(d.Err, auth.ErrResourceNotFound) {
		t.Fatalf("missing entry must deny as not found: %+v", d)
	}
}

func TestAuthorGateLooksUpEveryTime(t *testing.T) {
	users := newUsers()
	entries := &fakeEntries{owners: map[int64]int64{10: 1}}
	chain := NewBuilder().Authenticate(tokens).RequireAuthor(users, entries, "id").Build()

	for i := 0; i < 3; i++ {
		if _, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "10"})); !d.Allowed {
			t.Fatalf("attempt %d: %+v", i, d)
		}
	}
	if got := users.calls.Load(); got != 3 {
		t.Fatalf("expected 3 user lookups, got %d", got)
	}

	entries.owners[10] = 2
	if _, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "10"})); d.Allowed {
		t.Fatal("ownership change must be observed immediately")
	}
}

func TestAuthorGateLookupErrorFailsClosed(t *testing.T) {
	entries := &fakeEntries{err: errors.New("timeout")}
	chain := NewBuilder().Authenticate(tokens).RequireAuthor(newUsers(), entries, "id").Build()
	_, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "10"}))
	if d.Allowed || !errors.Is(d.Err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %+v", d)
	}
}

func TestChainStopsAtFirstDeny(t *testing.T) {
	users := newUsers()
	chain := NewBuilder().Authenticate(tokens).RequireRoles(auth.RoleAdmin).RequireSelf(users, "id").Build()
	_, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "1"}))
	if d.Allowed || d.Gate != "role" {
		t.Fatalf("expected role denial, got %+v", d)
	}
	if users.calls.Load() != 0 {
		t.Fatal("gates after a denial must not run")
	}
}

func TestGatesWithoutAuthenticateFailClosed(t *testing.T) {
	chain := NewBuilder().RequireSelf(newUsers(), "id").Build()
	_, d := chain.Evaluate(request("Bearer alice", map[string]string{"id": "1"}))
	if d.Allowed || !errors.Is(d.Err, auth.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated deny, got %+v", d)
	}
}
