package users

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 64
)

func trim(s string) string { return strings.TrimSpace(s) }

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRegistration(reg Registration) (Registration, error) {
	reg.Name = trim(reg.Name)
	reg.Email = NormalizeEmail(reg.Email)

	username, err := validUsername(reg.Username)
	if err != nil {
		return reg, err
	}
	reg.Username = username
	if reg.Name == "" {
		reg.Name = reg.Username
	}

	addr, err := mail.ParseAddress(reg.Email)
	if err != nil || addr.Address != reg.Email {
		return reg, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(reg.Password) < minPasswordLength {
		return reg, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return reg, nil
}

func validUsername(raw string) (string, error) {
	username := trim(raw)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(username) > maxUsernameLength {
		return "", fmt.Errorf("%w: username too long", ErrInvalidInput)
	}
	for _, r := range username {
		if unicode.IsSpace(r) {
			return "", fmt.Errorf("%w: username must not contain spaces", ErrInvalidInput)
		}
	}
	return username, nil
}
