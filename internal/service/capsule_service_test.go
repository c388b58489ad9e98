package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digicapsule/capsule-api/internal/domain"
	"github.com/digicapsule/capsule-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceFixture struct {
	capsules *fakeCapsuleStore
	users    *fakeUserStore
	cache    *fakeCache
	svc      CapsuleService
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	capsules := newFakeCapsuleStore()
	users := newFakeUserStore()
	cache := newFakeCache()

	svc, err := NewCapsuleService(capsules, users, cache, testLogger())
	require.NoError(t, err)

	return &serviceFixture{
		capsules: capsules,
		users:    users,
		cache:    cache,
		svc:      svc,
	}
}

// setClock pins the service's wall clock for lock-state assertions.
func (f *serviceFixture) setClock(t *testing.T, now time.Time) {
	t.Helper()
	impl, ok := f.svc.(*capsuleServiceImpl)
	require.True(t, ok)
	impl.now = func() time.Time { return now.UTC() }
}

func selfInput(openDate time.Time) CreateCapsuleInput {
	return CreateCapsuleInput{
		Title:       "To future me",
		Description: "a note",
		Content:     "remember this",
		ContentType: domain.ContentTypeText,
		Category:    domain.CategoryMemory,
		Relation:    domain.RelationSelf,
		OpenDate:    openDate,
	}
}

func sentInput(recipientEmail string, openDate time.Time) CreateCapsuleInput {
	return CreateCapsuleInput{
		Title:          "For you",
		Content:        "open me later",
		ContentType:    domain.ContentTypeText,
		Category:       domain.CategorySurprise,
		Relation:       domain.RelationSent,
		RecipientEmail: recipientEmail,
		OpenDate:       openDate,
	}
}

func TestNewCapsuleService_NilDependencies(t *testing.T) {
	t.Parallel()

	capsules := newFakeCapsuleStore()
	users := newFakeUserStore()

	_, err := NewCapsuleService(nil, users, nil, testLogger())
	assert.Error(t, err)

	_, err = NewCapsuleService(capsules, nil, nil, testLogger())
	assert.Error(t, err)

	// Cache and logger are optional.
	svc, err := NewCapsuleService(capsules, users, nil, nil)
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCreate_SelfCapsuleIndexesBothLists(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")
	openDate := time.Now().Add(24 * time.Hour)

	capsule, err := f.svc.Create(context.Background(), owner.ID, selfInput(openDate))
	require.NoError(t, err)
	assert.True(t, capsule.IsLocked, "new capsules start locked")
	assert.Equal(t, uuid.Nil, capsule.RecipientID)

	relations, err := f.capsules.GetIndexRelations(context.Background(), owner.ID, capsule.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]domain.Relation{domain.RelationSent, domain.RelationReceived},
		relations,
		"self capsule indexes under both lists of the owner")
}

func TestCreate_SentCapsuleIndexesRecipient(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("sender@example.com")
	recipient := f.users.addUser("friend@example.com")
	openDate := time.Now().Add(time.Hour)

	capsule, err := f.svc.Create(context.Background(), owner.ID, sentInput("friend@example.com", openDate))
	require.NoError(t, err)
	assert.Equal(t, recipient.ID, capsule.RecipientID)

	ownerRelations, err := f.capsules.GetIndexRelations(context.Background(), owner.ID, capsule.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Relation{domain.RelationSent}, ownerRelations)

	recipientRelations, err := f.capsules.GetIndexRelations(context.Background(), recipient.ID, capsule.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Relation{domain.RelationReceived}, recipientRelations)
}

func TestCreate_SentCapsuleRecipientEmailCaseInsensitive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("sender@example.com")
	recipient := f.users.addUser("friend@example.com")

	capsule, err := f.svc.Create(context.Background(), owner.ID,
		sentInput("Friend@Example.COM", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, recipient.ID, capsule.RecipientID)
}

func TestCreate_UnknownRecipientRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("sender@example.com")

	_, err := f.svc.Create(context.Background(), owner.ID,
		sentInput("nobody@example.com", time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, ErrRecipientNotFound)
	assert.Empty(t, f.capsules.capsules, "nothing persists when the recipient is unknown")
	assert.Empty(t, f.capsules.entries)
}

func TestCreate_ReceivedRelationRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")

	input := selfInput(time.Now().Add(time.Hour))
	input.Relation = domain.RelationReceived

	_, err := f.svc.Create(context.Background(), owner.ID, input)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_InvalidInputRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")

	input := selfInput(time.Now().Add(time.Hour))
	input.Title = ""

	_, err := f.svc.Create(context.Background(), owner.ID, input)
	assert.ErrorIs(t, err, domain.ErrCapsuleTitleEmpty)
	assert.Empty(t, f.capsules.capsules)
}

func TestCreate_InvalidatesBothCaches(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("sender@example.com")
	recipient := f.users.addUser("friend@example.com")

	_, err := f.svc.Create(context.Background(), owner.ID,
		sentInput("friend@example.com", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, 1, f.cache.clearCount(owner.ID))
	assert.Equal(t, 1, f.cache.clearCount(recipient.ID))
}

func TestList_TagsViewerRelation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")
	friend := f.users.addUser("friend@example.com")
	openDate := time.Now().Add(time.Hour)

	selfCapsule, err := f.svc.Create(context.Background(), owner.ID, selfInput(openDate))
	require.NoError(t, err)
	sentCapsule, err := f.svc.Create(context.Background(), owner.ID, sentInput("friend@example.com", openDate))
	require.NoError(t, err)

	ownerList, err := f.svc.List(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, ownerList, 2, "each capsule appears exactly once")

	byID := make(map[uuid.UUID]TaggedCapsule, len(ownerList))
	for _, tagged := range ownerList {
		byID[tagged.ID] = tagged
	}
	assert.Equal(t, domain.RelationSelf, byID[selfCapsule.ID].ViewerRelation)
	assert.Equal(t, domain.RelationSent, byID[sentCapsule.ID].ViewerRelation)

	friendList, err := f.svc.List(context.Background(), friend.ID)
	require.NoError(t, err)
	require.Len(t, friendList, 1)
	assert.Equal(t, sentCapsule.ID, friendList[0].ID)
	assert.Equal(t, domain.RelationReceived, friendList[0].ViewerRelation)
}

func TestList_EmptyForNewAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := f.users.addUser("new@example.com")

	list, err := f.svc.List(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestList_ServesCachedResult(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")

	_, err := f.svc.Create(context.Background(), owner.ID, selfInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	first, err := f.svc.List(context.Background(), owner.ID)
	require.NoError(t, err)

	// Wipe the backing store; a cache hit must not touch it.
	f.capsules.mu.Lock()
	f.capsules.capsules = make(map[uuid.UUID]domain.Capsule)
	f.capsules.entries = nil
	f.capsules.mu.Unlock()

	second, err := f.svc.List(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestList_CacheReadFailureFallsThrough(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")

	capsule, err := f.svc.Create(context.Background(), owner.ID, selfInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	f.cache.getErr = errors.New("connection refused")

	list, err := f.svc.List(context.Background(), owner.ID)
	require.NoError(t, err, "cache failures degrade to store reads")
	require.Len(t, list, 1)
	assert.Equal(t, capsule.ID, list[0].ID)
}

func TestGet_UnreachableCapsuleReportsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")
	stranger := f.users.addUser("stranger@example.com")

	capsule, err := f.svc.Create(context.Background(), owner.ID, selfInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), stranger.ID, capsule.ID)
	assert.ErrorIs(t, err, store.ErrCapsuleNotFound,
		"an unindexed capsule must not leak its existence")

	tagged, err := f.svc.Get(context.Background(), owner.ID, capsule.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RelationSelf, tagged.ViewerRelation)
}

func TestUpdate_OwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")
	other := f.users.addUser("other@example.com")

	capsule, err := f.svc.Create(context.Background(), owner.ID, selfInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	input := UpdateCapsuleInput{
		Title:       "Edited",
		Content:     capsule.Content,
		ContentType: capsule.ContentType,
		Category:    capsule.Category,
		OpenDate:    capsule.OpenDate,
	}

	_, err = f.svc.Update(context.Background(), other.ID, capsule.ID, input)
	assert.ErrorIs(t, err, ErrNotOwned)

	updated, err := f.svc.Update(context.Background(), owner.ID, capsule.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)

	// Repeating the same update converges on the same record.
	again, err := f.svc.Update(context.Background(), owner.ID, capsule.ID, input)
	require.NoError(t, err)
	assert.Equal(t, updated.Title, again.Title)
	assert.Equal(t, updated.OpenDate, again.OpenDate)
}

func TestUpdate_IdenticalPayloadIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")
	openDate := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	capsule, err := f.svc.Create(context.Background(), owner.ID, selfInput(openDate))
	require.NoError(t, err)

	input := UpdateCapsuleInput{
		Title:       "Edited",
		Content:     capsule.Content,
		ContentType: capsule.ContentType,
		Category:    capsule.Category,
		OpenDate:    capsule.OpenDate,
	}

	f.setClock(t, time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC))
	_, err = f.svc.Update(context.Background(), owner.ID, capsule.ID, input)
	require.NoError(t, err)

	first, err := f.capsules.GetByID(context.Background(), capsule.ID)
	require.NoError(t, err)

	// An edit stamps a fresh update time, but repeating the identical
	// payload converges on the exact same stored record.
	assert.True(t, first.UpdatedAt.After(capsule.UpdatedAt))

	f.setClock(t, time.Date(2030, 8, 1, 0, 0, 0, 0, time.UTC))
	_, err = f.svc.Update(context.Background(), owner.ID, capsule.ID, input)
	require.NoError(t, err)

	second, err := f.capsules.GetByID(context.Background(), capsule.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second, "an unchanged payload must not alter the stored record")
}

func TestUpdate_PreservesRoutingAndLockState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("sender@example.com")
	recipient := f.users.addUser("friend@example.com")

	capsule, err := f.svc.Create(context.Background(), owner.ID,
		sentInput("friend@example.com", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), owner.ID, capsule.ID, UpdateCapsuleInput{
		Title:       "New title",
		Content:     "new content",
		ContentType: capsule.ContentType,
		Category:    capsule.Category,
		OpenDate:    capsule.OpenDate,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RelationSent, updated.Relation)
	assert.Equal(t, recipient.ID, updated.RecipientID)
	assert.True(t, updated.IsLocked, "updates never change the lock flag")
}

func TestOpen_RespectsOpenDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")
	openDate := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	capsule, err := f.svc.Create(context.Background(), owner.ID, selfInput(openDate))
	require.NoError(t, err)

	f.setClock(t, openDate.Add(-time.Minute))
	_, err = f.svc.Open(context.Background(), owner.ID, capsule.ID)
	assert.ErrorIs(t, err, domain.ErrCapsuleStillLocked)

	stored, err := f.capsules.GetByID(context.Background(), capsule.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLocked, "an early open attempt changes nothing")

	f.setClock(t, openDate)
	opened, err := f.svc.Open(context.Background(), owner.ID, capsule.ID)
	require.NoError(t, err)
	assert.False(t, opened.IsLocked)

	stored, err = f.capsules.GetByID(context.Background(), capsule.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLocked, "the opened state is persisted")
}

func TestOpen_SenderCannotOpen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sender := f.users.addUser("sender@example.com")
	recipient := f.users.addUser("friend@example.com")
	openDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	capsule, err := f.svc.Create(context.Background(), sender.ID,
		sentInput("friend@example.com", openDate))
	require.NoError(t, err)

	f.setClock(t, openDate.Add(time.Hour))

	_, err = f.svc.Open(context.Background(), sender.ID, capsule.ID)
	assert.ErrorIs(t, err, ErrSenderCannotOpen,
		"the sender of a sent capsule may never open it, even after the open date")

	opened, err := f.svc.Open(context.Background(), recipient.ID, capsule.ID)
	require.NoError(t, err)
	assert.False(t, opened.IsLocked)
	assert.Equal(t, domain.RelationReceived, opened.ViewerRelation,
		"the opener sees their own relation, not the sender's")
}

func TestOpen_ReopeningIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")
	openDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	capsule, err := f.svc.Create(context.Background(), owner.ID, selfInput(openDate))
	require.NoError(t, err)

	f.setClock(t, openDate.Add(time.Hour))

	first, err := f.svc.Open(context.Background(), owner.ID, capsule.ID)
	require.NoError(t, err)

	second, err := f.svc.Open(context.Background(), owner.ID, capsule.ID)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "opened is terminal")
}

func TestOpen_UnknownCapsule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := f.users.addUser("owner@example.com")

	_, err := f.svc.Open(context.Background(), user.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrCapsuleNotFound)
}

func TestDelete_RemovesRecordAndEveryIndexEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("sender@example.com")
	recipient := f.users.addUser("friend@example.com")

	capsule, err := f.svc.Create(context.Background(), owner.ID,
		sentInput("friend@example.com", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), owner.ID, capsule.ID))

	_, err = f.capsules.GetByID(context.Background(), capsule.ID)
	assert.ErrorIs(t, err, store.ErrCapsuleNotFound)

	recipientList, err := f.svc.List(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Empty(t, recipientList, "the recipient's index entry goes with the record")

	// Both affected lists are invalidated: once at create, once at delete.
	assert.Equal(t, 2, f.cache.clearCount(owner.ID))
	assert.Equal(t, 2, f.cache.clearCount(recipient.ID))
}

func TestDelete_OwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("sender@example.com")
	recipient := f.users.addUser("friend@example.com")

	capsule, err := f.svc.Create(context.Background(), owner.ID,
		sentInput("friend@example.com", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), recipient.ID, capsule.ID)
	assert.ErrorIs(t, err, ErrNotOwned, "recipients cannot delete what they did not author")

	err = f.svc.Delete(context.Background(), owner.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrCapsuleNotFound)
}

func TestCheckRecipientExists(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.users.addUser("known@example.com")

	exists, err := f.svc.CheckRecipientExists(context.Background(), "known@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.svc.CheckRecipientExists(context.Background(), "KNOWN@example.com")
	require.NoError(t, err)
	assert.True(t, exists, "the account index is case-insensitive")

	exists, err = f.svc.CheckRecipientExists(context.Background(), "unknown@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreate_StoreFailureSurfacesError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.users.addUser("owner@example.com")

	storeErr := errors.New("connection reset")
	f.capsules.failNext = storeErr

	_, err := f.svc.Create(context.Background(), owner.ID, selfInput(time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, storeErr)
	assert.Zero(t, f.cache.clearCount(owner.ID), "no invalidation when nothing changed")
}
