package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/digicapsule/capsule-api/internal/domain"
	"github.com/digicapsule/capsule-api/internal/platform/logger"
	"github.com/digicapsule/capsule-api/internal/store"
)

// Mailer delivers verification emails. The production implementation talks
// to a mail provider; development deployments log the token instead.
type Mailer interface {
	// SendVerificationEmail delivers the verification token to the address.
	SendVerificationEmail(ctx context.Context, email, token string) error
}

// LogMailer is a Mailer for development that writes the token to the log
// instead of sending mail.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger falls back to the default.
func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{logger: log.With(slog.String("component", "log_mailer"))}
}

// SendVerificationEmail implements Mailer by logging the token.
func (m *LogMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.logger.Info("verification email (not sent, development mailer)",
		slog.String("email", email),
		slog.String("token", token))
	return nil
}

// VerificationService issues and consumes the single-use email verification
// tokens created at registration. Tokens are random values with a fixed
// lifetime; issuing a new token revokes any earlier ones for the account.
type VerificationService struct {
	userStore  store.UserStore
	tokenStore store.TokenStore
	mailer     Mailer
	lifetime   time.Duration
	logger     *slog.Logger
	timeFunc   func() time.Time
}

// NewVerificationService creates a VerificationService.
// Returns an error if any required dependency is nil.
func NewVerificationService(
	userStore store.UserStore,
	tokenStore store.TokenStore,
	mailer Mailer,
	lifetime time.Duration,
	log *slog.Logger,
) (*VerificationService, error) {
	if userStore == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if tokenStore == nil {
		return nil, errors.New("token store cannot be nil")
	}
	if mailer == nil {
		return nil, errors.New("mailer cannot be nil")
	}
	if lifetime <= 0 {
		return nil, errors.New("verification token lifetime must be positive")
	}
	if log == nil {
		log = slog.Default()
	}

	return &VerificationService{
		userStore:  userStore,
		tokenStore: tokenStore,
		mailer:     mailer,
		lifetime:   lifetime,
		logger:     log.With(slog.String("component", "verification_service")),
		timeFunc:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Begin issues a verification token for the user and mails it. Any token
// previously issued to the user is revoked first, so only the latest token
// verifies the account.
func (s *VerificationService) Begin(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.tokenStore.DeleteForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke earlier verification tokens: %w", err)
	}

	token, err := domain.NewVerificationToken(user.ID, s.lifetime)
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	if err := s.tokenStore.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to save verification token: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token.Token); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	log.Info("verification token issued",
		slog.String("user_id", user.ID.String()),
		slog.Time("expires_at", token.ExpiresAt))
	return nil
}

// Verify consumes a verification token and marks the account's email as
// verified. The token is deleted whether or not it had expired; expired
// tokens return ErrVerificationExpired and the caller must request a new one.
func (s *VerificationService) Verify(ctx context.Context, tokenValue string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	token, err := s.tokenStore.GetByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return ErrVerificationNotFound
		}
		return fmt.Errorf("failed to look up verification token: %w", err)
	}

	// Single-use: consume the token before acting on it.
	if err := s.tokenStore.Delete(ctx, tokenValue); err != nil && !errors.Is(err, store.ErrTokenNotFound) {
		return fmt.Errorf("failed to consume verification token: %w", err)
	}

	if token.Expired(s.timeFunc()) {
		log.Info("verification token expired",
			slog.String("user_id", token.UserID.String()))
		return ErrVerificationExpired
	}

	if err := s.userStore.MarkEmailVerified(ctx, token.UserID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	log.Info("email verified",
		slog.String("user_id", token.UserID.String()))
	return nil
}

// Resend issues a fresh verification token for the account with the given
// email. Already-verified accounts get ErrAlreadyVerified; unknown emails
// get store.ErrUserNotFound.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	return s.Begin(ctx, user)
}

// ResendForUser issues a fresh verification token for the account with the
// given id.
func (s *VerificationService) ResendForUser(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	return s.Begin(ctx, user)
}
