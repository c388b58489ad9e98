package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Capsule-specific validation errors
var (
	// ErrCapsuleIDEmpty is returned when a capsule ID is empty or nil.
	ErrCapsuleIDEmpty = errors.New("capsule ID cannot be empty")

	// ErrCapsuleOwnerIDEmpty is returned when a capsule's owner ID is empty or nil.
	ErrCapsuleOwnerIDEmpty = errors.New("capsule owner ID cannot be empty")

	// ErrCapsuleTitleEmpty is returned when a capsule's title is empty.
	ErrCapsuleTitleEmpty = errors.New("capsule title cannot be empty")

	// ErrCapsuleInvalidContentType is returned when the content type is not
	// one of the known content type labels.
	ErrCapsuleInvalidContentType = errors.New("capsule content type is invalid")

	// ErrCapsuleInvalidCategory is returned when the category is not one of
	// the known category labels.
	ErrCapsuleInvalidCategory = errors.New("capsule category is invalid")

	// ErrCapsuleInvalidRelation is returned when the owner relation is not
	// one of self, sent or received.
	ErrCapsuleInvalidRelation = errors.New("capsule owner relation is invalid")

	// ErrCapsuleRecipientRequired is returned when a sent capsule is missing
	// its recipient email.
	ErrCapsuleRecipientRequired = errors.New("sent capsule requires a recipient email")

	// ErrCapsuleOpenDateZero is returned when a capsule has no open date.
	ErrCapsuleOpenDateZero = errors.New("capsule open date cannot be zero")

	// ErrCapsuleCreatedAtZero is returned when a capsule has no creation timestamp.
	ErrCapsuleCreatedAtZero = errors.New("capsule creation timestamp cannot be zero")
)

// ContentType describes the kind of payload a capsule carries.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
)

// IsValid reports whether the content type is one of the known labels.
func (ct ContentType) IsValid() bool {
	switch ct {
	case ContentTypeText, ContentTypeImage, ContentTypeVideo:
		return true
	}
	return false
}

// Category is a fixed label used only for client-side filtering of capsules.
type Category string

const (
	CategoryAll      Category = "all"
	CategoryMemory   Category = "memory"
	CategoryGoal     Category = "goal"
	CategoryMessage  Category = "message"
	CategoryFuture   Category = "future"
	CategorySurprise Category = "surprise"
)

// IsValid reports whether the category is one of the known labels.
func (c Category) IsValid() bool {
	switch c {
	case CategoryAll, CategoryMemory, CategoryGoal, CategoryMessage,
		CategoryFuture, CategorySurprise:
		return true
	}
	return false
}

// Relation classifies a capsule from a given account's point of view.
type Relation string

const (
	// RelationSelf marks a capsule the account wrote to its future self.
	RelationSelf Relation = "self"

	// RelationSent marks a capsule the account sent to another account.
	RelationSent Relation = "sent"

	// RelationReceived marks a capsule another account sent to this one.
	RelationReceived Relation = "received"
)

// IsValid reports whether the relation is one of self, sent or received.
func (r Relation) IsValid() bool {
	switch r {
	case RelationSelf, RelationSent, RelationReceived:
		return true
	}
	return false
}

// Capsule represents a user-authored message with a future unlock time.
// A capsule stays locked until its open date passes and an authorized
// viewer explicitly opens it.
type Capsule struct {
	ID             uuid.UUID   `json:"id"`
	OwnerID        uuid.UUID   `json:"owner_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Content        string      `json:"content"`
	ContentType    ContentType `json:"content_type"`
	MediaRef       string      `json:"media_ref,omitempty"`
	Category       Category    `json:"category"`
	Relation       Relation    `json:"relation"`
	RecipientID    uuid.UUID   `json:"recipient_id,omitempty"`
	RecipientEmail string      `json:"recipient_email,omitempty"`
	OpenDate       time.Time   `json:"open_date"`
	IsLocked       bool        `json:"is_locked"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewCapsule creates a new locked Capsule owned by the given account.
// It generates a new UUID for the capsule ID and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewCapsule(
	ownerID uuid.UUID,
	title, description, content string,
	contentType ContentType,
	category Category,
	relation Relation,
	recipientEmail string,
	openDate time.Time,
) (*Capsule, error) {
	now := time.Now().UTC()
	capsule := &Capsule{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Title:          title,
		Description:    description,
		Content:        content,
		ContentType:    contentType,
		Category:       category,
		Relation:       relation,
		RecipientEmail: recipientEmail,
		OpenDate:       openDate.UTC(),
		IsLocked:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := capsule.Validate(); err != nil {
		return nil, err
	}

	return capsule, nil
}

// Validate checks if the Capsule has valid data.
// Returns an error if any field fails validation.
func (c *Capsule) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCapsuleIDEmpty
	}

	if c.OwnerID == uuid.Nil {
		return ErrCapsuleOwnerIDEmpty
	}

	if c.Title == "" {
		return ErrCapsuleTitleEmpty
	}

	if !c.ContentType.IsValid() {
		return ErrCapsuleInvalidContentType
	}

	if !c.Category.IsValid() {
		return ErrCapsuleInvalidCategory
	}

	if !c.Relation.IsValid() {
		return ErrCapsuleInvalidRelation
	}

	if c.Relation == RelationSent && c.RecipientEmail == "" {
		return ErrCapsuleRecipientRequired
	}

	if c.OpenDate.IsZero() {
		return ErrCapsuleOpenDateZero
	}

	if c.CreatedAt.IsZero() {
		return ErrCapsuleCreatedAtZero
	}

	return nil
}

// Openable reports whether the capsule's open date has passed at the given
// instant. This is a derived predicate, never a stored state: a locked
// capsule becomes openable purely as a function of wall-clock time.
func (c *Capsule) Openable(now time.Time) bool {
	return !now.Before(c.OpenDate)
}

// Open flips the capsule to its terminal opened state. The caller is
// responsible for authorization (the sender of a sent capsule may never
// open it). Returns ErrCapsuleStillLocked if the open date has not passed.
// Opening an already-open capsule is a no-op.
func (c *Capsule) Open(now time.Time) error {
	if !c.IsLocked {
		return nil
	}
	if !c.Openable(now) {
		return ErrCapsuleStillLocked
	}
	c.IsLocked = false
	c.UpdatedAt = now.UTC()
	return nil
}
