package docstore

import (
	"sort"
	"sync"
	"time"

	"bookshelf/pkg/domain"
)

// MemoryStore keeps documents in-process. It mirrors GormStore semantics and
// backs tests that should not need a database.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User       // key: user ID
	email   map[string]string            // email -> user ID
	entries map[string]domain.ShelfEntry // key: EntryKey(userID, bookID)
	order   []string                     // entry keys in insertion order
	reviews []domain.Review
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		email:   make(map[string]string),
		entries: make(map[string]domain.ShelfEntry),
	}
}

// SaveUser registers or replaces a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// UpsertShelfEntry merges the entry for the pair, refreshing AddedAt and
// keeping any shelf already assigned.
func (m *MemoryStore) UpsertShelfEntry(userID, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := EntryKey(userID, bookID)
	entry, exists := m.entries[key]
	if !exists {
		entry = domain.ShelfEntry{UserID: userID, BookID: bookID}
		m.order = append(m.order, key)
	}
	entry.AddedAt = time.Now().UTC()
	m.entries[key] = entry
	return nil
}

// SetEntryShelf updates the per-user shelf, creating the entry if absent.
func (m *MemoryStore) SetEntryShelf(userID, bookID string, shelf domain.Shelf) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := EntryKey(userID, bookID)
	entry, exists := m.entries[key]
	if !exists {
		entry = domain.ShelfEntry{UserID: userID, BookID: bookID, AddedAt: time.Now().UTC()}
		m.order = append(m.order, key)
	}
	entry.Shelf = shelf
	m.entries[key] = entry
	return nil
}

// ShelfEntries returns a user's entries in insertion order.
func (m *MemoryStore) ShelfEntries(userID string) ([]domain.ShelfEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ShelfEntry, 0, len(m.order))
	for _, key := range m.order {
		if entry, ok := m.entries[key]; ok && entry.UserID == userID {
			res = append(res, entry)
		}
	}
	return res, nil
}

// AddReview records a review.
func (m *MemoryStore) AddReview(r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, r)
	return nil
}

// ReviewsNewestFirst returns all reviews ordered by CreatedAt descending.
func (m *MemoryStore) ReviewsNewestFirst() ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Review, len(m.reviews))
	copy(res, m.reviews)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}
