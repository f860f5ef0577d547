// Package users manages accounts: signup, profile edits, role changes and deletion.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/page"
)

var (
	// ErrNotFound matches auth.ErrNotFound so stores satisfy auth.UserLookup directly.
	ErrNotFound     = fmt.Errorf("users: %w", auth.ErrNotFound)
	ErrConflict     = errors.New("users: email or username already taken")
	ErrInvalidInput = errors.New("users: invalid input")
)

// User is the stored account record. It never leaves the process as is; use Public.
type User struct {
	ID           int64
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Role         auth.Role
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the only representation of a user written to clients.
type PublicUser struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Role         auth.Role `json:"role"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public derives the client-facing view. Email and password hash are dropped.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Role:         u.Role,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

// Identity returns the authorization view of the user.
func (u User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID, Role: u.Role}
}

// Registration is the signup payload.
type Registration struct {
	Name     string
	Username string
	Email    string
	Password string
}

// ProfileUpdate carries the fields a user may change on their own profile.
// Empty fields are left as they are.
type ProfileUpdate struct {
	Name     string
	Username string
}

// Filter narrows a listing.
type Filter struct {
	// Username matches case-insensitively anywhere in the username.
	Username string
}

// Store persists users. Implementations must return ErrNotFound for unknown
// ids or emails and ErrConflict on duplicate email or username.
type Store interface {
	auth.UserLookup
	auth.CredentialStore
	auth.CredentialUpdater

	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context, f Filter, limit, offset int) ([]User, int, error)
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id int64) error
}

// Service implements account operations over a Store.
type Service struct {
	store  Store
	hasher *auth.Hasher
	now    func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, hasher *auth.Hasher, opts ...Option) *Service {
	if hasher == nil {
		hasher = auth.NewHasher()
	}
	s := &Service{store: store, hasher: hasher, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for wiring lookups into gates.
func (s *Service) Store() Store { return s.store }

// Create registers a new account with role user. The password is hashed
// before anything is written.
func (s *Service) Create(ctx context.Context, reg Registration) (User, error) {
	reg, err := normalizeRegistration(reg)
	if err != nil {
		return User{}, err
	}
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	u := User{
		Name:         reg.Name,
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// FindOne returns the user with id.
func (s *Service) FindOne(ctx context.Context, id int64) (User, error) {
	return s.store.GetUser(ctx, id)
}

// Paginate lists users ordered by id.
func (s *Service) Paginate(ctx context.Context, req page.Request, f Filter, route string) (page.Page[User], error) {
	req = req.Normalize()
	items, total, err := s.store.ListUsers(ctx, Filter{Username: trim(f.Username)}, req.Limit, req.Offset())
	if err != nil {
		return page.Page[User]{}, err
	}
	return page.New(items, total, req, route), nil
}

// UpdateProfile changes name and username only.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if name := trim(upd.Name); name != "" {
		u.Name = name
	}
	if upd.Username != "" {
		username, err := validUsername(upd.Username)
		if err != nil {
			return User{}, err
		}
		u.Username = username
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// UpdateRole sets the role of user id.
func (s *Service) UpdateRole(ctx context.Context, id int64, role auth.Role) (User, error) {
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, role)
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Role = role
	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// SetProfileImage records the stored file name of the user's profile image.
func (s *Service) SetProfileImage(ctx context.Context, id int64, filename string) (User, error) {
	filename = trim(filename)
	if filename == "" {
		return User{}, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.ProfileImage = filename
	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Delete removes user id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteUser(ctx, id)
}
