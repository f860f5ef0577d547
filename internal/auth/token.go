package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"scribe.dev/internal/ids"
)

const (
	// TokenTTL is the fixed lifetime of an access token.
	TokenTTL = 3600 * time.Second

	defaultIssuer   = "scribe"
	minSecretLength = 32
	maxClockSkew    = 5 * time.Second
)

var errShortSecret = fmt.Errorf("auth: token secret must be at least %d bytes", minSecretLength)

// Claims is the signed payload of an access token.
type Claims struct {
	UserID int64 `json:"id"`
	Role   Role  `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 access tokens. It keeps no
// per-token state; a token is valid until it expires.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService) error

// WithIssuer overrides the iss claim written and expected by the service.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		issuer = strings.TrimSpace(issuer)
		if issuer == "" {
			return errors.New("auth: issuer must not be empty")
		}
		s.issuer = issuer
		return nil
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if now == nil {
			return errors.New("auth: clock must not be nil")
		}
		s.now = now
		return nil
	}
}

// NewTokenService constructs a TokenService signing with secret. The secret is copied.
func NewTokenService(secret []byte, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, errShortSecret
	}
	s := &TokenService{
		secret: append([]byte(nil), secret...),
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Issue signs a token asserting identity.
func (s *TokenService) Issue(identity Identity) (Token, error) {
	if identity.ID <= 0 {
		return Token{}, fmt.Errorf("%w: identity id must be positive", ErrInvalidInput)
	}
	if !identity.Role.Valid() {
		return Token{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, identity.Role)
	}

	// JWT timestamps carry whole seconds.
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(TokenTTL)
	claims := Claims{
		UserID: identity.ID,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(identity.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        ids.New(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{
		Text:      signed,
		Identity:  identity,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate verifies text and returns the identity it asserts. Every failure
// wraps ErrUnauthenticated; the concrete sentinel is for diagnostics only.
func (s *TokenService) Validate(text string) (Identity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Identity{}, ErrTokenMalformed
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(text, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Identity{}, classifyParseError(err)
	}
	if err := s.validateClaims(claims); err != nil {
		return Identity{}, err
	}
	return Identity{ID: claims.UserID, Role: claims.Role}, nil
}

func (s *TokenService) validateClaims(claims *Claims) error {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return fmt.Errorf("%w: timestamps missing", ErrTokenMalformed)
	}
	if claims.Issuer != s.issuer {
		return fmt.Errorf("%w: unexpected issuer %q", ErrTokenMalformed, claims.Issuer)
	}
	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return fmt.Errorf("%w: subject does not match id claim", ErrTokenMalformed)
	}
	if !claims.Role.Valid() {
		return fmt.Errorf("%w: unsupported role %q", ErrTokenMalformed, claims.Role)
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return fmt.Errorf("%w: expiry precedes issued-at", ErrTokenMalformed)
	}

	now := s.now().UTC()
	if now.After(claims.ExpiresAt.Time) {
		return ErrTokenExpired
	}
	if claims.IssuedAt.Time.After(now.Add(maxClockSkew)) {
		return fmt.Errorf("%w: issued in the future", ErrTokenMalformed)
	}
	return nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
