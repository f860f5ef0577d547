package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// Authorization outcome classes. Every gate denial carries exactly one of them.
var (
	ErrUnauthenticated  = errors.New("auth: unauthenticated")
	ErrForbidden        = errors.New("auth: forbidden")
	ErrResourceNotFound = errors.New("auth: resource not found")
)

// Token diagnostics. They all wrap ErrUnauthenticated and are never shown to callers.
var (
	ErrTokenMalformed        = fmt.Errorf("%w: token malformed", ErrUnauthenticated)
	ErrTokenSignatureInvalid = fmt.Errorf("%w: token signature invalid", ErrUnauthenticated)
	ErrTokenExpired          = fmt.Errorf("%w: token expired", ErrUnauthenticated)
)

// Credential subsystem faults; fatal for the request that hit them.
var (
	ErrHashing           = errors.New("auth: password hashing failed")
	ErrInvalidHashFormat = errors.New("auth: invalid password hash format")
)
