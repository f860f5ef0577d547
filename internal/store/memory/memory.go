// Package memory provides process-local stores for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/blog"
	"scribe.dev/internal/users"
)

// Store keeps users and blog entries in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	users     map[int64]users.User
	entries   map[int64]blog.Entry
	nextUser  int64
	nextEntry int64
}

var (
	_ users.Store = (*Store)(nil)
	_ blog.Store  = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:   make(map[int64]users.User),
		entries: make(map[int64]blog.Entry),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateUser(_ context.Context, u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflictLocked(0, u.Email, u.Username) {
		return users.ErrConflict
	}
	s.nextUser++
	u.ID = s.nextUser
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context, f users.Filter, limit, offset int) ([]users.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(f.Username)
	var matched []users.User
	for _, u := range s.users {
		if needle != "" && !strings.Contains(strings.ToLower(u.Username), needle) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return window(matched, limit, offset), len(matched), nil
}

func (s *Store) UpdateUser(_ context.Context, u users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return users.ErrNotFound
	}
	if s.conflictLocked(u.ID, "", u.Username) {
		return users.ErrConflict
	}
	// email and password hash have dedicated paths
	u.Email = cur.Email
	u.PasswordHash = cur.PasswordHash
	u.CreatedAt = cur.CreatedAt
	s.users[u.ID] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return users.ErrNotFound
	}
	delete(s.users, id)
	for eid, e := range s.entries {
		if e.AuthorID == id {
			delete(s.entries, eid)
		}
	}
	return nil
}

func (s *Store) FindIdentity(_ context.Context, id int64) (auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return auth.Identity{}, users.ErrNotFound
	}
	return u.Identity(), nil
}

func (s *Store) FindCredentialByEmail(_ context.Context, email string) (auth.Credential, error) {
	email = users.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return auth.Credential{UserID: u.ID, PasswordHash: u.PasswordHash}, nil
		}
	}
	return auth.Credential{}, users.ErrNotFound
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[userID] = u
	return nil
}

func (s *Store) conflictLocked(selfID int64, email, username string) bool {
	for id, u := range s.users {
		if id == selfID {
			continue
		}
		if (email != "" && u.Email == email) || (username != "" && u.Username == username) {
			return true
		}
	}
	return false
}

func (s *Store) CreateEntry(_ context.Context, e *blog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEntry++
	e.ID = s.nextEntry
	s.entries[e.ID] = *e
	return nil
}

func (s *Store) GetEntry(_ context.Context, id int64) (blog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return blog.Entry{}, blog.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListEntries(_ context.Context, authorID int64, limit, offset int) ([]blog.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []blog.Entry
	for _, e := range s.entries {
		if authorID > 0 && e.AuthorID != authorID {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return window(matched, limit, offset), len(matched), nil
}

func (s *Store) UpdateEntry(_ context.Context, e blog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID]
	if !ok {
		return blog.ErrNotFound
	}
	e.AuthorID = cur.AuthorID
	e.Created = cur.Created
	e.Likes = cur.Likes
	s.entries[e.ID] = e
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return blog.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) FindOwnership(_ context.Context, id int64) (auth.OwnershipFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return auth.OwnershipFact{}, blog.ErrNotFound
	}
	return e.Ownership(), nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
