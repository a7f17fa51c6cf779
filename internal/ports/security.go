package ports

import (
	"context"
	"time"
)

// AuthClaims is the adapter-neutral identity carried by an issued token.
type AuthClaims struct {
	Subject    string
	Role       string
	Warehouses []string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// TokenSigner signs and parses portal access tokens.
type TokenSigner interface {
	Sign(claims AuthClaims) (string, error)
	Parse(token string) (AuthClaims, error)
}

// PasswordHasher abstracts the password hashing scheme.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// LockoutState captures failed-login pressure on an account.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore tracks failed logins so repeated guesses lock the account for
// a window. Backed by Redis so lockouts survive restarts and apply across
// replicas.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}
