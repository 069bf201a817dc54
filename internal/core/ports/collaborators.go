package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// Hasher is a one-way credential hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) bool
}

// TokenService issues and verifies signed, time-bound activation tokens
// bound to an email address.
type TokenService interface {
	Issue(subjectEmail string) (string, error)
	// Verify returns the subject email or domain.ErrInvalidToken.
	Verify(token string) (string, error)
}

// TokenLedger records activation tokens that have been redeemed.
type TokenLedger interface {
	// Consume marks the token as used and returns domain.ErrTokenAlreadyUsed
	// if it was consumed before.
	Consume(ctx context.Context, token string) error
	// Release forgets a consumed token so it can be redeemed again. Used
	// when the activation it guarded was never persisted.
	Release(ctx context.Context, token string) error
}

// Notifier delivers account notifications. Calls return once the message
// has been handed to the transport.
type Notifier interface {
	SendActivation(ctx context.Context, account *domain.Account, token string) error
	SendPasswordResetNotice(ctx context.Context, account *domain.Account) error
}
