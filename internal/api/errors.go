package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/digicapsule/capsule-api/internal/api/shared"
	"github.com/digicapsule/capsule-api/internal/domain"
	"github.com/digicapsule/capsule-api/internal/service"
	"github.com/digicapsule/capsule-api/internal/service/auth"
	"github.com/digicapsule/capsule-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned),
		errors.Is(err, service.ErrSenderCannotOpen):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, auth.ErrVerificationNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, domain.ErrCapsuleStillLocked),
		errors.Is(err, auth.ErrAlreadyVerified):
		return http.StatusConflict

	// An expired verification token is gone for good; the client must
	// request a fresh one.
	case errors.Is(err, auth.ErrVerificationExpired):
		return http.StatusGone

	// The recipient email is well-formed but resolves to no account.
	case errors.Is(err, service.ErrRecipientNotFound):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidEmail),
		isDomainValidationError(err):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// isDomainValidationError reports whether the error is one of the sentinel
// errors a domain constructor returns for bad field data.
func isDomainValidationError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrCapsuleTitleEmpty,
		domain.ErrCapsuleInvalidContentType,
		domain.ErrCapsuleInvalidCategory,
		domain.ErrCapsuleInvalidRelation,
		domain.ErrCapsuleRecipientRequired,
		domain.ErrCapsuleOpenDateZero,
		domain.ErrEmptyEmail,
		domain.ErrPasswordTooShort,
		domain.ErrPasswordTooLong,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this capsule"

	case errors.Is(err, service.ErrSenderCannotOpen):
		return "Only the recipient can open this capsule"

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrCapsuleNotFound):
		return "Capsule not found"

	case errors.Is(err, store.ErrTokenNotFound),
		errors.Is(err, auth.ErrVerificationNotFound):
		return "Verification token not found"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, domain.ErrCapsuleStillLocked):
		return "Capsule cannot be opened before its open date"

	case errors.Is(err, auth.ErrAlreadyVerified):
		return "Email address already verified"

	case errors.Is(err, auth.ErrVerificationExpired):
		return "Verification token has expired"

	case errors.Is(err, service.ErrRecipientNotFound):
		return "Recipient is not a registered user"

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrValidation),
		isDomainValidationError(err):
		return "Validation error: " + err.Error()

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps the error to a status code and sanitized message and
// writes the response, logging the underlying error. When the error maps to
// an internal server error and fallbackMessage is non-empty, the fallback
// replaces the generic message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	statusCode := MapErrorToStatusCode(err)
	safeMessage := GetSafeErrorMessage(err)

	if statusCode == http.StatusInternalServerError && fallbackMessage != "" {
		safeMessage = fallbackMessage
	}

	shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required", "required_if":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
