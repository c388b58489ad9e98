package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and checks the signed tokens that authenticate API
// requests. Access tokens are short-lived; refresh tokens outlive them
// and are only good for minting a new pair.
type JWTService interface {
	// GenerateToken signs a new access token for the given account.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken parses and verifies an access token, returning its
	// claims. Fails with ErrExpiredToken, ErrInvalidToken or
	// ErrWrongTokenType when the token cannot be accepted.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken signs a new refresh token for the given account.
	GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateRefreshToken parses and verifies a refresh token, returning
	// its claims. An access token presented here is rejected with
	// ErrWrongTokenType.
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the decoded payload of a token this service issued.
type Claims struct {
	// UserID identifies the account the token was minted for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// TokenType distinguishes access from refresh tokens so one cannot
	// stand in for the other.
	TokenType string `json:"type,omitempty"`

	// Registered JWT claims carried through from the signed token.
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
