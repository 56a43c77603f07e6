package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEmail       = newError(KindValidation, "email is required")
	ErrInvalidPassword    = newError(KindValidation, "password is required")
	ErrPasswordTooLong    = newError(KindValidation, "password must be at most 72 bytes")
	ErrEmailTaken         = newError(KindValidation, "Email already exists")
	ErrInvalidCredentials = newError(KindValidation, "invalid credentials")
	ErrUserNotFound       = newError(KindNotFound, "user not found")
	ErrMissingToken       = newError(KindUnauthenticated, "missing bearer token")
	ErrInvalidToken       = newError(KindUnauthenticated, "invalid token")
)

// User is a registered identity. PasswordHash never leaves the service layer.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates a user from already hashed credentials.
func NewUser(email, name, passwordHash string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// TokenClaims is the identity carried by a signed token.
type TokenClaims struct {
	UserID string
	Email  string
}

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenManager issues and verifies signed identity tokens.
type TokenManager interface {
	Issue(user *User) (string, error)
	Verify(token string) (*TokenClaims, error)
}
