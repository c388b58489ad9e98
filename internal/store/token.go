package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/digicapsule/capsule-api/internal/domain"
)

// TokenStore defines the interface for email verification token persistence.
type TokenStore interface {
	// Create saves a new verification token.
	// Returns validation errors from the domain VerificationToken if data is invalid.
	Create(ctx context.Context, token *domain.VerificationToken) error

	// GetByValue retrieves a verification token by its opaque value.
	// Returns ErrTokenNotFound if the token does not exist.
	GetByValue(ctx context.Context, value string) (*domain.VerificationToken, error)

	// Delete removes a verification token by its value. Tokens are
	// single-use: a successful verification deletes its token.
	// Returns ErrTokenNotFound if the token does not exist.
	Delete(ctx context.Context, value string) error

	// DeleteForUser removes every verification token issued to the given
	// user. Called before issuing a replacement so only the latest token
	// verifies the account. Deleting zero tokens is not an error.
	DeleteForUser(ctx context.Context, userID uuid.UUID) error

	// WithTx returns a new TokenStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TokenStore
}
