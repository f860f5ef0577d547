package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id defaults follow the OWASP recommendation.
const (
	defaultArgonTime    = 3
	defaultArgonMemory  = 64 * 1024
	defaultArgonThreads = 1
	argonKeyLen         = 32
	argonSaltLen        = 16
	maxArgonKeyLen      = 1024

	// Stored hashes above these costs are rejected before any work is done.
	maxArgonTime    = 10
	maxArgonMemory  = 1 << 20 // KiB, 1 GiB
	maxArgonThreads = 64
)

// Fixed salt and key for placeholder hashes. No password derives this key.
const (
	placeholderSalt = "4Hs4VKDYlGUBHboNSpwj8Q"
	placeholderKey  = "GjWmiJORGBsqOXKR4PN2vtsDq8Ujq27z3n2hWDgRIpA"
)

// Hasher produces and verifies salted one-way password hashes.
// A Hasher is immutable after construction and safe for concurrent use.
type Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	entropy io.Reader
}

// HasherOption configures a Hasher.
type HasherOption func(*Hasher)

// WithArgonParams overrides the Argon2id cost parameters. Zero values keep the default.
func WithArgonParams(time, memoryKiB uint32, threads uint8) HasherOption {
	return func(h *Hasher) {
		if time > 0 {
			h.time = time
		}
		if memoryKiB > 0 {
			h.memory = memoryKiB
		}
		if threads > 0 {
			h.threads = threads
		}
	}
}

// WithEntropy replaces the salt source.
func WithEntropy(r io.Reader) HasherOption {
	return func(h *Hasher) {
		if r != nil {
			h.entropy = r
		}
	}
}

// NewHasher constructs a Hasher using Argon2id.
func NewHasher(opts ...HasherOption) *Hasher {
	h := &Hasher{
		time:    defaultArgonTime,
		memory:  defaultArgonMemory,
		threads: defaultArgonThreads,
		entropy: rand.Reader,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the PHC encoding of an Argon2id hash of plaintext:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<key>
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	salt := make([]byte, argonSaltLen)
	if _, err := io.ReadFull(h.entropy, salt); err != nil {
		return "", fmt.Errorf("%w: generate salt: %v", ErrHashing, err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.time, h.memory, h.threads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// placeholder is a well-formed hash with this Hasher's costs that matches no
// password. Verifying against it costs the same as a real hash.
func (h *Hasher) placeholder() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads, placeholderSalt, placeholderKey)
}

// Verify reports whether plaintext matches hashed. A mismatch is (false, nil);
// only a malformed hash produces an error.
func (h *Hasher) Verify(plaintext, hashed string) (bool, error) {
	if isBcrypt(hashed) {
		err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrInvalidHashFormat, err)
		}
	}

	params, salt, key, err := decodePHC(hashed)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(plaintext), salt, params.time, params.memory, params.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// NeedsRehash reports whether hashed was produced by a legacy algorithm or with
// weaker parameters than this Hasher uses.
func (h *Hasher) NeedsRehash(hashed string) bool {
	if isBcrypt(hashed) {
		return true
	}
	params, _, _, err := decodePHC(hashed)
	if err != nil {
		return false
	}
	return params.time < h.time || params.memory < h.memory || params.threads < h.threads
}

var defaultHasher = NewHasher()

// HashPassword hashes plaintext with the default Hasher.
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// VerifyPassword checks plaintext against hashed with the default Hasher.
func VerifyPassword(password, hashed string) (bool, error) {
	return defaultHasher.Verify(password, hashed)
}

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

func isBcrypt(hashed string) bool {
	return strings.HasPrefix(hashed, "$2a$") ||
		strings.HasPrefix(hashed, "$2b$") ||
		strings.HasPrefix(hashed, "$2y$")
}

func decodePHC(encoded string) (params argonParams, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return params, nil, nil, fmt.Errorf("%w: expected 6 PHC segments", ErrInvalidHashFormat)
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHashFormat, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("%w: version: %v", ErrInvalidHashFormat, err)
	}
	if version != argon2.Version {
		return params, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHashFormat, version)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return params, nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidHashFormat, err)
	}
	if params.memory == 0 || params.time == 0 || params.threads == 0 {
		return params, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrInvalidHashFormat)
	}
	if params.memory > maxArgonMemory || params.time > maxArgonTime || params.threads > maxArgonThreads {
		return params, nil, nil, fmt.Errorf("%w: cost parameters out of range", ErrInvalidHashFormat)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, fmt.Errorf("%w: salt", ErrInvalidHashFormat)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxArgonKeyLen {
		return params, nil, nil, fmt.Errorf("%w: key", ErrInvalidHashFormat)
	}
	return params, salt, key, nil
}
