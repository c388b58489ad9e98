package service

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

// CapsuleServiceError is a custom error type for capsule service errors.
type CapsuleServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for CapsuleServiceError.
func (e *CapsuleServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capsule service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("capsule service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CapsuleServiceError) Unwrap() error {
	return e.Err
}

// NewCapsuleServiceError creates a new CapsuleServiceError.
func NewCapsuleServiceError(operation, message string, err error) *CapsuleServiceError {
	return &CapsuleServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// TaggedCapsule is a capsule record together with the relation class under
// which the viewing account reaches it: self when the account holds both a
// sent and a received index entry, received or sent otherwise.
type TaggedCapsule struct {
	domain.Capsule
	ViewerRelation domain.Relation `json:"viewer_relation"`
}

// CreateCapsuleInput carries the caller-supplied fields of a new capsule.
type CreateCapsuleInput struct {
	Title          string
	Description    string
	Content        string
	ContentType    domain.ContentType
	MediaRef       string
	Category       domain.Category
	Relation       domain.Relation
	RecipientEmail string
	OpenDate       time.Time
}

// UpdateCapsuleInput carries the fields an owner may edit on an existing
// capsule. Routing fields (relation, recipient) are immutable after
// creation; the lock flag only changes through Open.
type UpdateCapsuleInput struct {
	Title       string
	Description string
	Content     string
	ContentType domain.ContentType
	MediaRef    string
	Category    domain.Category
	OpenDate    time.Time
}

// CapsuleListCache is the best-effort cache for assembled capsule lists.
// Failures are logged and treated as misses; the store stays authoritative.
type CapsuleListCache interface {
	GetAll(ctx context.Context, userID uuid.UUID) ([]TaggedCapsule, bool, error)
	SaveAll(ctx context.Context, userID uuid.UUID, capsules []TaggedCapsule) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CapsuleService provides capsule lifecycle operations.
type CapsuleService interface {
	// Create validates the input, resolves the recipient for sent capsules
	// and writes the record plus its index entries atomically.
	Create(ctx context.Context, ownerID uuid.UUID, input CreateCapsuleInput) (*domain.Capsule, error)

	// List returns every capsule reachable by the account, each exactly
	// once, tagged with the viewer's relation class.
	List(ctx context.Context, userID uuid.UUID) ([]TaggedCapsule, error)

	// Get returns a single capsule, restricted to accounts that index it.
	Get(ctx context.Context, userID, capsuleID uuid.UUID) (*TaggedCapsule, error)

	// Update overwrites editable fields of a capsule owned by the account.
	Update(ctx context.Context, userID, capsuleID uuid.UUID, input UpdateCapsuleInput) (*domain.Capsule, error)

	// Open performs the only state-changing lifecycle transition,
	// persisting the unlocked state. Re-opening an open capsule succeeds.
	// The result carries the opener's relation class, matching List/Get.
	Open(ctx context.Context, userID, capsuleID uuid.UUID) (*TaggedCapsule, error)

	// Delete removes a capsule owned by the account along with every
	// index entry that references it.
	Delete(ctx context.Context, userID, capsuleID uuid.UUID) error

	// CheckRecipientExists reports whether an account with the given email
	// is registered. Advisory: Create re-validates.
	CheckRecipientExists(ctx context.Context, email string) (bool, error)
}

// capsuleServiceImpl implements the CapsuleService interface
type capsuleServiceImpl struct {
	capsuleStore store.CapsuleStore
	userStore    store.UserStore
	cache        CapsuleListCache
	logger       *slog.Logger
	now          func() time.Time
}

// NewCapsuleService creates a new CapsuleService.
// The cache may be nil, in which case every list hits the store.
// It returns an error if any other required dependency is nil.
func NewCapsuleService(
	capsuleStore store.CapsuleStore,
	userStore store.UserStore,
	cache CapsuleListCache,
	log *slog.Logger,
) (CapsuleService, error) {
	if capsuleStore == nil {
		return nil, errors.New("capsule store cannot be nil")
	}
	if userStore == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &capsuleServiceImpl{
		capsuleStore: capsuleStore,
		userStore:    userStore,
		cache:        cache,
		logger:       log.With(slog.String("component", "capsule_service")),
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create implements CapsuleService.Create
func (s *capsuleServiceImpl) Create(
	ctx context.Context,
	ownerID uuid.UUID,
	input CreateCapsuleInput,
) (*domain.Capsule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Accounts author capsules for themselves or for someone else; a
	// received capsule only ever appears via another account's create.
	if input.Relation == domain.RelationReceived {
		return nil, domain.NewValidationError("relation", "cannot be received at creation", domain.ErrValidation)
	}

	capsule, err := domain.NewCapsule(
		ownerID,
		input.Title,
		input.Description,
		input.Content,
		input.ContentType,
		input.Category,
		input.Relation,
		input.RecipientEmail,
		input.OpenDate,
	)
	if err != nil {
		log.Warn("capsule validation failed",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, err
	}
	capsule.MediaRef = input.MediaRef

	entries := []store.IndexEntry{
		{UserID: ownerID, CapsuleID: capsule.ID, Relation: domain.RelationSent},
	}

	switch capsule.Relation {
	case domain.RelationSelf:
		// Self capsules index under both lists of the same account; list
		// derives the self tag from the double entry.
		entries = append(entries, store.IndexEntry{
			UserID:    ownerID,
			CapsuleID: capsule.ID,
			Relation:  domain.RelationReceived,
		})
	case domain.RelationSent:
		recipient, err := s.userStore.GetByEmail(ctx, input.RecipientEmail)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				log.Info("recipient not found, rejecting capsule creation",
					slog.String("owner_id", ownerID.String()))
				return nil, ErrRecipientNotFound
			}
			return nil, NewCapsuleServiceError("create", "failed to resolve recipient", err)
		}
		capsule.RecipientID = recipient.ID
		entries = append(entries, store.IndexEntry{
			UserID:    recipient.ID,
			CapsuleID: capsule.ID,
			Relation:  domain.RelationReceived,
		})
	}

	if err := s.capsuleStore.Create(ctx, capsule, entries); err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, capsule)

	log.Info("capsule created",
		slog.String("capsule_id", capsule.ID.String()),
		slog.String("owner_id", ownerID.String()),
		slog.String("relation", string(capsule.Relation)))
	return capsule, nil
}

// List implements CapsuleService.List
func (s *capsuleServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]TaggedCapsule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if s.cache != nil {
		cached, ok, err := s.cache.GetAll(ctx, userID)
		if err != nil {
			log.Warn("capsule list cache read failed",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
		} else if ok {
			return cached, nil
		}
	}

	entries, err := s.capsuleStore.ListIndexEntries(ctx, userID)
	if err != nil {
		return nil, NewCapsuleServiceError("list", "failed to read index entries", err)
	}

	// Union the referenced ids; an account holding several index entries
	// for one capsule still sees it exactly once.
	relationsByID := make(map[uuid.UUID]map[domain.Relation]bool, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if relationsByID[entry.CapsuleID] == nil {
			relationsByID[entry.CapsuleID] = make(map[domain.Relation]bool, 2)
			ids = append(ids, entry.CapsuleID)
		}
		relationsByID[entry.CapsuleID][entry.Relation] = true
	}

	capsules, err := s.capsuleStore.GetByIDs(ctx, ids)
	if err != nil {
		return nil, NewCapsuleServiceError("list", "failed to load capsule records", err)
	}

	tagged := make([]TaggedCapsule, 0, len(capsules))
	for _, capsule := range capsules {
		tagged = append(tagged, TaggedCapsule{
			Capsule:        *capsule,
			ViewerRelation: viewerRelation(relationsByID[capsule.ID]),
		})
	}

	if s.cache != nil {
		if err := s.cache.SaveAll(ctx, userID, tagged); err != nil {
			log.Warn("capsule list cache write failed",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
		}
	}

	return tagged, nil
}

// viewerRelation derives the relation class from the set of index entries
// an account holds for one capsule.
func viewerRelation(relations map[domain.Relation]bool) domain.Relation {
	switch {
	case relations[domain.RelationSent] && relations[domain.RelationReceived]:
		return domain.RelationSelf
	case relations[domain.RelationReceived]:
		return domain.RelationReceived
	default:
		return domain.RelationSent
	}
}

// Get implements CapsuleService.Get
func (s *capsuleServiceImpl) Get(ctx context.Context, userID, capsuleID uuid.UUID) (*TaggedCapsule, error) {
	relations, err := s.capsuleStore.GetIndexRelations(ctx, userID, capsuleID)
	if err != nil {
		return nil, NewCapsuleServiceError("get", "failed to read index relations", err)
	}

	// Unreachable capsules report not-found rather than forbidden so their
	// existence does not leak.
	if len(relations) == 0 {
		return nil, store.ErrCapsuleNotFound
	}

	capsule, err := s.capsuleStore.GetByID(ctx, capsuleID)
	if err != nil {
		return nil, err
	}

	relationSet := make(map[domain.Relation]bool, len(relations))
	for _, r := range relations {
		relationSet[r] = true
	}

	return &TaggedCapsule{
		Capsule:        *capsule,
		ViewerRelation: viewerRelation(relationSet),
	}, nil
}

// Update implements CapsuleService.Update
func (s *capsuleServiceImpl) Update(
	ctx context.Context,
	userID, capsuleID uuid.UUID,
	input UpdateCapsuleInput,
) (*domain.Capsule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	capsule, err := s.capsuleStore.GetByID(ctx, capsuleID)
	if err != nil {
		return nil, err
	}

	if capsule.OwnerID != userID {
		log.Warn("update rejected, capsule owned by another account",
			slog.String("capsule_id", capsuleID.String()),
			slog.String("user_id", userID.String()))
		return nil, ErrNotOwned
	}

	// Repeating an update with an unchanged payload stores the same
	// record, timestamp included, so the write is skipped entirely.
	if !capsuleEdited(capsule, input) {
		log.Debug("update carried no changes, skipping write",
			slog.String("capsule_id", capsuleID.String()))
		return capsule, nil
	}

	capsule.Title = input.Title
	capsule.Description = input.Description
	capsule.Content = input.Content
	capsule.ContentType = input.ContentType
	capsule.MediaRef = input.MediaRef
	capsule.Category = input.Category
	capsule.OpenDate = input.OpenDate.UTC()
	capsule.UpdatedAt = s.now()

	if err := capsule.Validate(); err != nil {
		return nil, err
	}

	if err := s.capsuleStore.Update(ctx, capsule); err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, capsule)

	log.Info("capsule updated",
		slog.String("capsule_id", capsuleID.String()))
	return capsule, nil
}

// capsuleEdited reports whether the input differs from the stored record
// on any editable field.
func capsuleEdited(capsule *domain.Capsule, input UpdateCapsuleInput) bool {
	return capsule.Title != input.Title ||
		capsule.Description != input.Description ||
		capsule.Content != input.Content ||
		capsule.ContentType != input.ContentType ||
		capsule.MediaRef != input.MediaRef ||
		capsule.Category != input.Category ||
		!capsule.OpenDate.Equal(input.OpenDate)
}

// Open implements CapsuleService.Open
// Locked -> openable is derived from the clock; this method performs the
// only stored transition, openable -> opened.
func (s *capsuleServiceImpl) Open(ctx context.Context, userID, capsuleID uuid.UUID) (*TaggedCapsule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	relations, err := s.capsuleStore.GetIndexRelations(ctx, userID, capsuleID)
	if err != nil {
		return nil, NewCapsuleServiceError("open", "failed to read index relations", err)
	}
	if len(relations) == 0 {
		return nil, store.ErrCapsuleNotFound
	}

	relationSet := make(map[domain.Relation]bool, len(relations))
	for _, r := range relations {
		relationSet[r] = true
	}

	// The sender of a sent capsule holds only a sent entry and can never
	// open it; owners of self capsules and recipients both hold a
	// received entry.
	if !relationSet[domain.RelationReceived] {
		log.Warn("open rejected for sender of sent capsule",
			slog.String("capsule_id", capsuleID.String()),
			slog.String("user_id", userID.String()))
		return nil, ErrSenderCannotOpen
	}

	capsule, err := s.capsuleStore.GetByID(ctx, capsuleID)
	if err != nil {
		return nil, err
	}

	tagged := &TaggedCapsule{ViewerRelation: viewerRelation(relationSet)}

	if !capsule.IsLocked {
		// Opened is terminal; repeating the open is a no-op success.
		tagged.Capsule = *capsule
		return tagged, nil
	}

	if err := capsule.Open(s.now()); err != nil {
		return nil, err
	}

	if err := s.capsuleStore.Update(ctx, capsule); err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, capsule)

	log.Info("capsule opened",
		slog.String("capsule_id", capsuleID.String()),
		slog.String("user_id", userID.String()))
	tagged.Capsule = *capsule
	return tagged, nil
}

// Delete implements CapsuleService.Delete
func (s *capsuleServiceImpl) Delete(ctx context.Context, userID, capsuleID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Read the record first to learn who else indexes it, so every
	// affected account's cache can be invalidated after the delete.
	capsule, err := s.capsuleStore.GetByID(ctx, capsuleID)
	if err != nil {
		return err
	}

	if capsule.OwnerID != userID {
		log.Warn("delete rejected, capsule owned by another account",
			slog.String("capsule_id", capsuleID.String()),
			slog.String("user_id", userID.String()))
		return ErrNotOwned
	}

	if err := s.capsuleStore.Delete(ctx, capsuleID); err != nil {
		return err
	}

	s.invalidateCaches(ctx, capsule)

	log.Info("capsule deleted",
		slog.String("capsule_id", capsuleID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// CheckRecipientExists implements CapsuleService.CheckRecipientExists
func (s *capsuleServiceImpl) CheckRecipientExists(ctx context.Context, email string) (bool, error) {
	_, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return false, nil
		}
		return false, NewCapsuleServiceError("check_recipient", "failed to query account index", err)
	}
	return true, nil
}

// invalidateCaches clears the cached lists of every account that can
// reach the capsule. Failures are logged, never surfaced: the cache is
// best-effort and the store already holds the truth.
func (s *capsuleServiceImpl) invalidateCaches(ctx context.Context, capsule *domain.Capsule) {
	if s.cache == nil {
		return
	}

	log := logger.FromContextOrDefault(ctx, s.logger)

	targets := []uuid.UUID{capsule.OwnerID}
	if capsule.RecipientID != uuid.Nil && capsule.RecipientID != capsule.OwnerID {
		targets = append(targets, capsule.RecipientID)
	}

	for _, target := range targets {
		if err := s.cache.Clear(ctx, target); err != nil {
			log.Warn("capsule list cache invalidation failed",
				slog.String("error", err.Error()),
				slog.String("user_id", target.String()))
		}
	}
}
