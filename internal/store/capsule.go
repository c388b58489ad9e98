package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/digicapsule/capsule-api/internal/domain"
)

// IndexEntry is a denormalized pointer stored under an account's namespace.
// It lets an account enumerate the capsules reachable by it without
// scanning the whole record set. Relation here is always sent or received;
// the self classification is derived by the service from an account
// holding both rows for the same capsule.
type IndexEntry struct {
	UserID    uuid.UUID
	CapsuleID uuid.UUID
	Relation  domain.Relation
}

// CapsuleStore defines the interface for capsule data persistence.
type CapsuleStore interface {
	// Create saves a new capsule record together with all of its index
	// entries in a single transaction: one user-initiated create's several
	// writes land together-or-not-at-all.
	// Returns validation errors from the domain Capsule if data is invalid.
	Create(ctx context.Context, capsule *domain.Capsule, entries []IndexEntry) error

	// GetByID retrieves a capsule record by its unique ID.
	// Returns ErrCapsuleNotFound if the capsule does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Capsule, error)

	// GetByIDs retrieves the records for the given IDs. IDs with no record
	// are silently absent from the result; the caller owns orphan handling.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Capsule, error)

	// ListIndexEntries returns every index entry stored under the given
	// account, across both the sent and received lists.
	ListIndexEntries(ctx context.Context, userID uuid.UUID) ([]IndexEntry, error)

	// GetIndexRelations returns the relations under which the given account
	// indexes the given capsule. An empty slice means the capsule is not
	// reachable from that account.
	GetIndexRelations(ctx context.Context, userID, capsuleID uuid.UUID) ([]domain.Relation, error)

	// Update overwrites the capsule record at its existing ID.
	// Returns ErrCapsuleNotFound if the record vanished between read and write.
	Update(ctx context.Context, capsule *domain.Capsule) error

	// Delete removes the capsule record and every index entry that
	// references it in a single transaction, leaving no orphan pointers.
	// Returns ErrCapsuleNotFound if the capsule does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new CapsuleStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) CapsuleStore
}
