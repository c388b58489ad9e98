// Package service provides application-level services for managing capsules and accounts.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNotOwned indicates a capsule is owned by a different user than the one making the request.
	// This is typically returned when a user attempts to modify a capsule they don't own.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("capsule is owned by another user")

	// ErrRecipientNotFound indicates that a sent capsule's recipient email
	// did not resolve to a registered account. Creation is rejected and no
	// record is written. API layer should map this to HTTP 422.
	ErrRecipientNotFound = errors.New("recipient account not found")

	// ErrSenderCannotOpen indicates the acting account is the sender of a
	// sent capsule; a sender can never open a capsule addressed to someone
	// else. API layer should map this to HTTP 403 Forbidden.
	ErrSenderCannotOpen = errors.New("sender cannot open a sent capsule")
)
