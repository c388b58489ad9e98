package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Verification token validation errors
var (
	ErrEmptyTokenValue     = errors.New("verification token value cannot be empty")
	ErrTokenUserIDEmpty    = errors.New("verification token user ID cannot be empty")
	ErrTokenExpiryZero     = errors.New("verification token expiry cannot be zero")
	ErrVerificationExpired = errors.New("verification token has expired")
)

// verificationTokenBytes is the entropy of a verification token value
// (32 hex characters once encoded).
const verificationTokenBytes = 16

// VerificationToken is a single-use token mailed to an account to confirm
// ownership of its email address.
type VerificationToken struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewVerificationToken creates a token for the given user with the given
// lifetime. The token value is random hex from crypto/rand.
func NewVerificationToken(userID uuid.UUID, lifetime time.Duration) (*VerificationToken, error) {
	b := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	token := &VerificationToken{
		Token:     hex.EncodeToString(b),
		UserID:    userID,
		ExpiresAt: now.Add(lifetime),
		CreatedAt: now,
	}

	if err := token.Validate(); err != nil {
		return nil, err
	}

	return token, nil
}

// Validate checks if the VerificationToken has valid data.
func (t *VerificationToken) Validate() error {
	if t.Token == "" {
		return ErrEmptyTokenValue
	}

	if t.UserID == uuid.Nil {
		return ErrTokenUserIDEmpty
	}

	if t.ExpiresAt.IsZero() {
		return ErrTokenExpiryZero
	}

	return nil
}

// Expired reports whether the token's lifetime has passed at the given instant.
func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
