package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/digicapsule/capsule-api/internal/domain"
	"github.com/digicapsule/capsule-api/internal/platform/logger"
	"github.com/digicapsule/capsule-api/internal/store"
)

// PostgresTokenStore implements the store.TokenStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a new PostgreSQL implementation of the
// TokenStore interface.
func NewPostgresTokenStore(db store.DBTX, log *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresTokenStore{
		db:     db,
		logger: log.With(slog.String("component", "token_store")),
	}
}

// Ensure PostgresTokenStore implements store.TokenStore interface
var _ store.TokenStore = (*PostgresTokenStore)(nil)

// WithTx implements store.TokenStore.WithTx
func (s *PostgresTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	return &PostgresTokenStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TokenStore.Create
// Returns store.ErrInvalidEntity if the user ID doesn't exist (foreign key violation).
func (s *PostgresTokenStore) Create(ctx context.Context, token *domain.VerificationToken) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := token.Validate(); err != nil {
		log.Warn("verification token validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", token.UserID.String()))
		return err
	}

	query := `
		INSERT INTO verification_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		token.Token,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("foreign key violation during token creation",
				slog.String("error", err.Error()),
				slog.String("user_id", token.UserID.String()))
			return store.ErrInvalidEntity
		}
		log.Error("failed to create verification token",
			slog.String("error", err.Error()),
			slog.String("user_id", token.UserID.String()))
		return err
	}

	log.Debug("verification token created",
		slog.String("user_id", token.UserID.String()))
	return nil
}

// GetByValue implements store.TokenStore.GetByValue
// Returns store.ErrTokenNotFound if the token does not exist.
func (s *PostgresTokenStore) GetByValue(ctx context.Context, value string) (*domain.VerificationToken, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT token, user_id, expires_at, created_at
		FROM verification_tokens
		WHERE token = $1
	`

	var token domain.VerificationToken
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&token.Token,
		&token.UserID,
		&token.ExpiresAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("verification token not found")
			return nil, store.ErrTokenNotFound
		}
		log.Error("failed to get verification token",
			slog.String("error", err.Error()))
		return nil, err
	}

	return &token, nil
}

// Delete implements store.TokenStore.Delete
// Returns store.ErrTokenNotFound if the token does not exist.
func (s *PostgresTokenStore) Delete(ctx context.Context, value string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE token = $1`, value)
	if err != nil {
		log.Error("failed to delete verification token",
			slog.String("error", err.Error()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("verification token not found for delete")
		return store.ErrTokenNotFound
	}

	return nil
}

// DeleteForUser implements store.TokenStore.DeleteForUser
// Deleting zero tokens is not an error.
func (s *PostgresTokenStore) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE user_id = $1`, userID)
	if err != nil {
		log.Error("failed to delete verification tokens for user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return err
	}

	return nil
}
