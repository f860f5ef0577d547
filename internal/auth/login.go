package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"scribe.dev/internal/obs"
)

// LoginService exchanges an email and password for an access token.
type LoginService struct {
	credentials CredentialStore
	users       UserLookup
	hasher      *Hasher
	tokens      TokenIssuer
	updater     CredentialUpdater

	decoyOnce sync.Once
	decoy     string
}

// LoginOption configures LoginService behavior.
type LoginOption func(*LoginService)

// WithRehash upgrades legacy or weak hashes after a successful login.
func WithRehash(updater CredentialUpdater) LoginOption {
	return func(s *LoginService) {
		s.updater = updater
	}
}

// NewLoginService wires the login flow.
func NewLoginService(credentials CredentialStore, users UserLookup, hasher *Hasher, tokens TokenIssuer, opts ...LoginOption) *LoginService {
	if hasher == nil {
		hasher = defaultHasher
	}
	s := &LoginService{
		credentials: credentials,
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the password and issues a token for the user's current identity.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *LoginService) Login(ctx context.Context, email, password string) (Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Token{}, ErrInvalidCredentials
	}

	cred, err := s.credentials.FindCredentialByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// Keep the response time close to that of a real verification.
		_, _ = s.hasher.Verify(password, s.decoyHash())
		return Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, fmt.Errorf("find credential: %w", err)
	}

	ok, err := s.hasher.Verify(password, cred.PasswordHash)
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, ErrInvalidCredentials
	}

	identity, err := s.users.FindIdentity(ctx, cred.UserID)
	if errors.Is(err, ErrNotFound) {
		return Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, fmt.Errorf("find identity: %w", err)
	}

	if s.updater != nil && s.hasher.NeedsRehash(cred.PasswordHash) {
		s.rehash(ctx, cred.UserID, password)
	}
	return s.tokens.Issue(identity)
}

func (s *LoginService) rehash(ctx context.Context, userID int64, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		obs.Warn("password_rehash_failed", map[string]any{"user_id": userID, "err": err})
		return
	}
	if err := s.updater.UpdatePasswordHash(ctx, userID, hash); err != nil {
		obs.Warn("password_rehash_failed", map[string]any{"user_id": userID, "err": err})
	}
}

func (s *LoginService) decoyHash() string {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash("decoy-password-never-matches")
		if err != nil {
			obs.Warn("decoy_hash_failed", map[string]any{"err": err})
			hash = s.hasher.placeholder()
		}
		s.decoy = hash
	})
	return s.decoy
}
