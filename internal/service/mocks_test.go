package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/digicapsule/capsule-api/internal/domain"
	"github.com/digicapsule/capsule-api/internal/store"
)

// fakeCapsuleStore is an in-memory CapsuleStore for service tests. Create
// and Delete apply their fan-out all-or-nothing, like the real store's
// transactions.
type fakeCapsuleStore struct {
	mu       sync.Mutex
	capsules map[uuid.UUID]domain.Capsule
	entries  []store.IndexEntry

	failNext error // when set, the next operation returns this error once
}

func newFakeCapsuleStore() *fakeCapsuleStore {
	return &fakeCapsuleStore{capsules: make(map[uuid.UUID]domain.Capsule)}
}

func (f *fakeCapsuleStore) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeCapsuleStore) Create(_ context.Context, capsule *domain.Capsule, entries []store.IndexEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if err := capsule.Validate(); err != nil {
		return err
	}
	f.capsules[capsule.ID] = *capsule
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeCapsuleStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Capsule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	capsule, ok := f.capsules[id]
	if !ok {
		return nil, store.ErrCapsuleNotFound
	}
	return &capsule, nil
}

func (f *fakeCapsuleStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.Capsule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []*domain.Capsule{}
	for _, id := range ids {
		if capsule, ok := f.capsules[id]; ok {
			c := capsule
			result = append(result, &c)
		}
	}
	return result, nil
}

func (f *fakeCapsuleStore) ListIndexEntries(_ context.Context, userID uuid.UUID) ([]store.IndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []store.IndexEntry{}
	for _, entry := range f.entries {
		if entry.UserID == userID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (f *fakeCapsuleStore) GetIndexRelations(_ context.Context, userID, capsuleID uuid.UUID) ([]domain.Relation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	relations := []domain.Relation{}
	for _, entry := range f.entries {
		if entry.UserID == userID && entry.CapsuleID == capsuleID {
			relations = append(relations, entry.Relation)
		}
	}
	return relations, nil
}

func (f *fakeCapsuleStore) Update(_ context.Context, capsule *domain.Capsule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if _, ok := f.capsules[capsule.ID]; !ok {
		return store.ErrCapsuleNotFound
	}
	f.capsules[capsule.ID] = *capsule
	return nil
}

func (f *fakeCapsuleStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if _, ok := f.capsules[id]; !ok {
		return store.ErrCapsuleNotFound
	}
	delete(f.capsules, id)
	kept := f.entries[:0]
	for _, entry := range f.entries {
		if entry.CapsuleID != id {
			kept = append(kept, entry)
		}
	}
	f.entries = kept
	return nil
}

func (f *fakeCapsuleStore) WithTx(*sql.Tx) store.CapsuleStore { return f }

// fakeUserStore is an in-memory UserStore keyed by ID and email.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]domain.User)}
}

func (f *fakeUserStore) addUser(email string) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := domain.User{
		ID:             uuid.New(),
		Email:          strings.ToLower(email),
		HashedPassword: "$2a$10$fakehashfakehashfakehash",
		EmailVerified:  true,
	}
	f.users[user.ID] = user
	return &user
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == strings.ToLower(email) {
			u := user
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	user.EmailVerified = true
	f.users[id] = user
	return nil
}

func (f *fakeUserStore) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) WithTx(*sql.Tx) store.UserStore { return f }

// fakeCache records cache traffic for assertions.
type fakeCache struct {
	mu     sync.Mutex
	lists  map[uuid.UUID][]TaggedCapsule
	clears map[uuid.UUID]int
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		lists:  make(map[uuid.UUID][]TaggedCapsule),
		clears: make(map[uuid.UUID]int),
	}
}

func (f *fakeCache) GetAll(_ context.Context, userID uuid.UUID) ([]TaggedCapsule, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	capsules, ok := f.lists[userID]
	return capsules, ok, nil
}

func (f *fakeCache) SaveAll(_ context.Context, userID uuid.UUID, capsules []TaggedCapsule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[userID] = capsules
	return nil
}

func (f *fakeCache) Clear(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lists, userID)
	f.clears[userID]++
	return nil
}

func (f *fakeCache) clearCount(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears[userID]
}
