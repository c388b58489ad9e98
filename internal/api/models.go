package api

import (
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// RegisterResponse defines the successful response for the registration
// endpoint. No tokens are issued until the email is verified.
type RegisterResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"access_token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	// RefreshToken is the JWT refresh token to be used to obtain a new token pair
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	// AccessToken is the new JWT token used for API authorization
	AccessToken string `json:"access_token"`

	// RefreshToken is the new JWT token used to obtain future access tokens
	RefreshToken string `json:"refresh_token"`
}

// VerifyEmailRequest defines the payload for the email verification endpoint.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// ResendVerificationRequest defines the payload for requesting a fresh
// verification token.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateCapsuleRequest defines the payload for creating a capsule.
type CreateCapsuleRequest struct {
	Title          string    `json:"title"           validate:"required,max=200"`
	Description    string    `json:"description"     validate:"max=2000"`
	Content        string    `json:"content"`
	ContentType    string    `json:"content_type"    validate:"required,oneof=text image video"`
	MediaRef       string    `json:"media_ref"`
	Category       string    `json:"category"        validate:"required,oneof=all memory goal message future surprise"`
	Relation       string    `json:"relation"        validate:"required,oneof=self sent"`
	RecipientEmail string    `json:"recipient_email" validate:"required_if=Relation sent,omitempty,email"`
	OpenDate       time.Time `json:"open_date"       validate:"required"`
}

// UpdateCapsuleRequest defines the payload for editing a capsule. Routing
// fields (relation, recipient) are fixed at creation and absent here.
type UpdateCapsuleRequest struct {
	Title       string    `json:"title"        validate:"required,max=200"`
	Description string    `json:"description"  validate:"max=2000"`
	Content     string    `json:"content"`
	ContentType string    `json:"content_type" validate:"required,oneof=text image video"`
	MediaRef    string    `json:"media_ref"`
	Category    string    `json:"category"     validate:"required,oneof=all memory goal message future surprise"`
	OpenDate    time.Time `json:"open_date"    validate:"required"`
}

// CapsuleResponse represents the response data for a capsule. Content is
// withheld while the capsule is locked.
type CapsuleResponse struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Content        string    `json:"content,omitempty"`
	ContentType    string    `json:"content_type"`
	MediaRef       string    `json:"media_ref,omitempty"`
	Category       string    `json:"category"`
	Relation       string    `json:"relation"`
	RecipientEmail string    `json:"recipient_email,omitempty"`
	OpenDate       time.Time `json:"open_date"`
	IsLocked       bool      `json:"is_locked"`
	IsOpenable     bool      `json:"is_openable"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CapsuleListResponse wraps the capsule collection for the list endpoint.
type CapsuleListResponse struct {
	Capsules []CapsuleResponse `json:"capsules"`
}

// RecipientCheckResponse reports whether an email belongs to a registered
// account.
type RecipientCheckResponse struct {
	Email  string `json:"email"`
	Exists bool   `json:"exists"`
}

// MediaUploadResponse returns the stored object's reference and a
// time-limited download URL.
type MediaUploadResponse struct {
	MediaRef string `json:"media_ref"`
	URL      string `json:"url,omitempty"`
}
