package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/digicapsule/capsule-api/internal/domain"
	"github.com/digicapsule/capsule-api/internal/platform/logger"
	"github.com/digicapsule/capsule-api/internal/store"
)

// PostgresCapsuleStore implements the store.CapsuleStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCapsuleStore struct {
	db     store.DBTX
	sqlDB  *sql.DB // nil when operating inside a caller-provided transaction
	logger *slog.Logger
}

// NewPostgresCapsuleStore creates a new PostgreSQL implementation of the
// CapsuleStore interface. It accepts a database connection that should be
// initialized and managed by the caller.
// If log is nil, a default logger will be used.
func NewPostgresCapsuleStore(db *sql.DB, log *slog.Logger) *PostgresCapsuleStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresCapsuleStore{
		db:     db,
		sqlDB:  db,
		logger: log.With(slog.String("component", "capsule_store")),
	}
}

// Ensure PostgresCapsuleStore implements store.CapsuleStore interface
var _ store.CapsuleStore = (*PostgresCapsuleStore)(nil)

// WithTx implements store.CapsuleStore.WithTx
func (s *PostgresCapsuleStore) WithTx(tx *sql.Tx) store.CapsuleStore {
	return &PostgresCapsuleStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.CapsuleStore.Create
// The capsule record and every index entry are written in a single
// transaction, so a create's fan-out writes land together-or-not-at-all.
// Returns store.ErrInvalidEntity if an index entry points at a missing
// account (foreign key violation).
func (s *PostgresCapsuleStore) Create(
	ctx context.Context,
	capsule *domain.Capsule,
	entries []store.IndexEntry,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := capsule.Validate(); err != nil {
		log.Warn("capsule validation failed during create",
			slog.String("error", err.Error()),
			slog.String("capsule_id", capsule.ID.String()))
		return err
	}

	if s.sqlDB != nil {
		return store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
			return createCapsuleInTx(ctx, tx, capsule, entries, log)
		})
	}

	// Already inside a caller-managed transaction.
	return createCapsuleInTx(ctx, s.db, capsule, entries, log)
}

func createCapsuleInTx(
	ctx context.Context,
	db store.DBTX,
	capsule *domain.Capsule,
	entries []store.IndexEntry,
	log *slog.Logger,
) error {
	recordQuery := `
		INSERT INTO capsules (
			id, owner_id, title, description, content, content_type, media_ref,
			category, relation, recipient_id, recipient_email, open_date,
			is_locked, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := db.ExecContext(
		ctx,
		recordQuery,
		capsule.ID,
		capsule.OwnerID,
		capsule.Title,
		capsule.Description,
		capsule.Content,
		string(capsule.ContentType),
		nullString(capsule.MediaRef),
		string(capsule.Category),
		string(capsule.Relation),
		nullUUID(capsule.RecipientID),
		nullString(capsule.RecipientEmail),
		capsule.OpenDate,
		capsule.IsLocked,
		capsule.CreatedAt,
		capsule.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("foreign key violation during capsule creation",
				slog.String("error", err.Error()),
				slog.String("capsule_id", capsule.ID.String()),
				slog.String("owner_id", capsule.OwnerID.String()))
			return fmt.Errorf("%w: owner with ID %s not found",
				store.ErrInvalidEntity, capsule.OwnerID)
		}
		log.Error("failed to create capsule",
			slog.String("error", err.Error()),
			slog.String("capsule_id", capsule.ID.String()))
		return err
	}

	indexQuery := `
		INSERT INTO capsule_index (user_id, capsule_id, relation, created_at)
		VALUES ($1, $2, $3, $4)
	`
	for _, entry := range entries {
		_, err := db.ExecContext(
			ctx,
			indexQuery,
			entry.UserID,
			entry.CapsuleID,
			string(entry.Relation),
			capsule.CreatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				log.Warn("foreign key violation during index fan-out",
					slog.String("error", err.Error()),
					slog.String("capsule_id", entry.CapsuleID.String()),
					slog.String("user_id", entry.UserID.String()))
				return fmt.Errorf("%w: account with ID %s not found",
					store.ErrInvalidEntity, entry.UserID)
			}
			log.Error("failed to write capsule index entry",
				slog.String("error", err.Error()),
				slog.String("capsule_id", entry.CapsuleID.String()),
				slog.String("user_id", entry.UserID.String()))
			return err
		}
	}

	log.Info("capsule created successfully",
		slog.String("capsule_id", capsule.ID.String()),
		slog.String("owner_id", capsule.OwnerID.String()),
		slog.Int("index_entries", len(entries)))
	return nil
}

// capsuleColumns is the select list shared by every record read.
const capsuleColumns = `
	id, owner_id, title, description, content, content_type, media_ref,
	category, relation, recipient_id, recipient_email, open_date,
	is_locked, created_at, updated_at
`

func scanCapsule(row interface{ Scan(dest ...any) error }) (*domain.Capsule, error) {
	var (
		capsule        domain.Capsule
		contentType    string
		category       string
		relation       string
		mediaRef       sql.NullString
		recipientID    uuid.NullUUID
		recipientEmail sql.NullString
	)

	err := row.Scan(
		&capsule.ID,
		&capsule.OwnerID,
		&capsule.Title,
		&capsule.Description,
		&capsule.Content,
		&contentType,
		&mediaRef,
		&category,
		&relation,
		&recipientID,
		&recipientEmail,
		&capsule.OpenDate,
		&capsule.IsLocked,
		&capsule.CreatedAt,
		&capsule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	capsule.ContentType = domain.ContentType(contentType)
	capsule.Category = domain.Category(category)
	capsule.Relation = domain.Relation(relation)
	capsule.MediaRef = mediaRef.String
	capsule.RecipientID = recipientID.UUID
	capsule.RecipientEmail = recipientEmail.String

	return &capsule, nil
}

// GetByID implements store.CapsuleStore.GetByID
// Returns store.ErrCapsuleNotFound if the capsule does not exist.
func (s *PostgresCapsuleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Capsule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + capsuleColumns + ` FROM capsules WHERE id = $1`

	capsule, err := scanCapsule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("capsule not found", slog.String("capsule_id", id.String()))
			return nil, store.ErrCapsuleNotFound
		}
		log.Error("failed to get capsule by ID",
			slog.String("error", err.Error()),
			slog.String("capsule_id", id.String()))
		return nil, err
	}

	return capsule, nil
}

// GetByIDs implements store.CapsuleStore.GetByIDs
// IDs without a record are absent from the result.
func (s *PostgresCapsuleStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Capsule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return []*domain.Capsule{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT ` + capsuleColumns + ` FROM capsules WHERE id IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query capsules by IDs",
			slog.String("error", err.Error()),
			slog.Int("id_count", len(ids)))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	capsules := []*domain.Capsule{}
	for rows.Next() {
		capsule, err := scanCapsule(rows)
		if err != nil {
			log.Error("failed to scan capsule row",
				slog.String("error", err.Error()))
			return nil, err
		}
		capsules = append(capsules, capsule)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return capsules, nil
}

// ListIndexEntries implements store.CapsuleStore.ListIndexEntries
func (s *PostgresCapsuleStore) ListIndexEntries(ctx context.Context, userID uuid.UUID) ([]store.IndexEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT user_id, capsule_id, relation
		FROM capsule_index
		WHERE user_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query capsule index",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	entries := []store.IndexEntry{}
	for rows.Next() {
		var entry store.IndexEntry
		var relation string
		if err := rows.Scan(&entry.UserID, &entry.CapsuleID, &relation); err != nil {
			log.Error("failed to scan index entry",
				slog.String("error", err.Error()))
			return nil, err
		}
		entry.Relation = domain.Relation(relation)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return entries, nil
}

// GetIndexRelations implements store.CapsuleStore.GetIndexRelations
func (s *PostgresCapsuleStore) GetIndexRelations(
	ctx context.Context,
	userID, capsuleID uuid.UUID,
) ([]domain.Relation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT relation
		FROM capsule_index
		WHERE user_id = $1 AND capsule_id = $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, capsuleID)
	if err != nil {
		log.Error("failed to query index relations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("capsule_id", capsuleID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	relations := []domain.Relation{}
	for rows.Next() {
		var relation string
		if err := rows.Scan(&relation); err != nil {
			log.Error("failed to scan relation",
				slog.String("error", err.Error()))
			return nil, err
		}
		relations = append(relations, domain.Relation(relation))
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return relations, nil
}

// Update implements store.CapsuleStore.Update
// It overwrites the record at its existing ID, persisting the timestamps
// exactly as given; the service owns the update clock, so writing the same
// record twice stores the same bytes twice. Routing invariants are not
// re-validated (callers only flip safe fields such as the lock flag).
// Returns store.ErrCapsuleNotFound if the record vanished.
func (s *PostgresCapsuleStore) Update(ctx context.Context, capsule *domain.Capsule) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := capsule.Validate(); err != nil {
		log.Warn("capsule validation failed during update",
			slog.String("error", err.Error()),
			slog.String("capsule_id", capsule.ID.String()))
		return err
	}

	query := `
		UPDATE capsules
		SET title = $1, description = $2, content = $3, content_type = $4,
			media_ref = $5, category = $6, open_date = $7, is_locked = $8,
			updated_at = $9
		WHERE id = $10
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		capsule.Title,
		capsule.Description,
		capsule.Content,
		string(capsule.ContentType),
		nullString(capsule.MediaRef),
		string(capsule.Category),
		capsule.OpenDate,
		capsule.IsLocked,
		capsule.UpdatedAt,
		capsule.ID,
	)

	if err != nil {
		log.Error("failed to update capsule",
			slog.String("error", err.Error()),
			slog.String("capsule_id", capsule.ID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("capsule_id", capsule.ID.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("capsule not found for update",
			slog.String("capsule_id", capsule.ID.String()))
		return store.ErrCapsuleNotFound
	}

	log.Info("capsule updated successfully",
		slog.String("capsule_id", capsule.ID.String()))
	return nil
}

// Delete implements store.CapsuleStore.Delete
// The record and every index entry referencing it are removed in a single
// transaction, so no orphan pointers remain reachable afterwards.
// Returns store.ErrCapsuleNotFound if the capsule does not exist.
func (s *PostgresCapsuleStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if s.sqlDB != nil {
		return store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
			return deleteCapsuleInTx(ctx, tx, id, log)
		})
	}

	return deleteCapsuleInTx(ctx, s.db, id, log)
}

func deleteCapsuleInTx(ctx context.Context, db store.DBTX, id uuid.UUID, log *slog.Logger) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM capsule_index WHERE capsule_id = $1`, id); err != nil {
		log.Error("failed to delete capsule index entries",
			slog.String("error", err.Error()),
			slog.String("capsule_id", id.String()))
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM capsules WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete capsule",
			slog.String("error", err.Error()),
			slog.String("capsule_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("capsule_id", id.String()))
		return err
	}

	// Missing records are reported, not silently ignored.
	if rowsAffected == 0 {
		log.Debug("capsule not found for delete",
			slog.String("capsule_id", id.String()))
		return store.ErrCapsuleNotFound
	}

	log.Info("capsule deleted",
		slog.String("capsule_id", id.String()))
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
