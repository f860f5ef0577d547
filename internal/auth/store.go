package auth

import "context"

// UserLookup resolves the current identity of a user. Implementations return
// ErrNotFound when the user does not exist.
type UserLookup interface {
	FindIdentity(ctx context.Context, id int64) (Identity, error)
}

// ResourceLookup resolves the owner of a resource. Implementations return
// ErrNotFound when the resource does not exist.
type ResourceLookup interface {
	FindOwnership(ctx context.Context, id int64) (OwnershipFact, error)
}

// CredentialStore reads stored password hashes by login email.
type CredentialStore interface {
	FindCredentialByEmail(ctx context.Context, email string) (Credential, error)
}

// CredentialUpdater replaces a stored password hash.
type CredentialUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(identity Identity) (Token, error)
}
