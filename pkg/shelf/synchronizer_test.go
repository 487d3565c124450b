package shelf

import (
	"errors"
	"sync"
	"testing"

	"bookshelf/pkg/docstore"
	"bookshelf/pkg/domain"
)

type fakeCatalog struct {
	mu       sync.Mutex
	books    map[string]domain.Book
	setErr   error
	setCalls int
	gate     chan struct{} // when set, SetShelf blocks until closed
	entered  chan struct{} // when set, receives once per SetShelf call
}

func (f *fakeCatalog) GetBook(id string) (domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	book, ok := f.books[id]
	if !ok {
		return domain.Book{}, errors.New("book not found")
	}
	return book, nil
}

func (f *fakeCatalog) SetShelf(id string, shelf domain.Shelf) (domain.Book, error) {
	f.mu.Lock()
	f.setCalls++
	gate := f.gate
	entered := f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return domain.Book{}, f.setErr
	}
	book, ok := f.books[id]
	if !ok {
		return domain.Book{}, errors.New("book not found")
	}
	book.Shelf = shelf
	f.books[id] = book
	return book, nil
}

func seededStore(t *testing.T, userID string, bookIDs ...string) *docstore.MemoryStore {
	t.Helper()
	store := docstore.NewMemoryStore()
	for _, id := range bookIDs {
		if err := store.UpsertShelfEntry(userID, id); err != nil {
			t.Fatalf("seed entry %q: %v", id, err)
		}
	}
	return store
}

func TestLoadUserShelfDropsMissingBooks(t *testing.T) {
	store := seededStore(t, "u1", "A", "Z-missing")
	cat := &fakeCatalog{books: map[string]domain.Book{
		"A": {ID: "A", Title: "Book A"},
	}}
	s := New(cat, store)

	books, err := s.LoadUserShelf(domain.Session{UserID: "u1"})
	if err != nil {
		t.Fatalf("load shelf: %v", err)
	}
	if len(books) != 1 || books[0].ID != "A" {
		t.Fatalf("expected only book A, got %+v", books)
	}
}

func TestLoadUserShelfEmptyIsNotAnError(t *testing.T) {
	s := New(&fakeCatalog{books: map[string]domain.Book{}}, docstore.NewMemoryStore())

	books, err := s.LoadUserShelf(domain.Session{UserID: "u1"})
	if err != nil {
		t.Fatalf("load empty shelf: %v", err)
	}
	if len(books) != 0 {
		t.Fatalf("expected empty shelf, got %+v", books)
	}
}

func TestLoadUserShelfOverlaysPerUserShelf(t *testing.T) {
	store := docstore.NewMemoryStore()
	if err := store.SetEntryShelf("u1", "A", domain.ShelfCurrentlyReading); err != nil {
		t.Fatalf("seed shelf: %v", err)
	}
	// The shared catalog record carries another user's assignment.
	cat := &fakeCatalog{books: map[string]domain.Book{
		"A": {ID: "A", Title: "Book A", Shelf: domain.ShelfRead},
	}}
	s := New(cat, store)

	books, err := s.LoadUserShelf(domain.Session{UserID: "u1"})
	if err != nil {
		t.Fatalf("load shelf: %v", err)
	}
	if len(books) != 1 || books[0].Shelf != domain.ShelfCurrentlyReading {
		t.Fatalf("expected per-user shelf to win, got %+v", books)
	}
}

func TestChangeShelfRoundTrip(t *testing.T) {
	store := seededStore(t, "u1", "A")
	cat := &fakeCatalog{books: map[string]domain.Book{
		"A": {ID: "A", Title: "Book A"},
	}}
	s := New(cat, store)
	sess := domain.Session{UserID: "u1"}

	if _, err := s.LoadUserShelf(sess); err != nil {
		t.Fatalf("load shelf: %v", err)
	}
	book, err := s.ChangeShelf(sess, "A", domain.ShelfRead)
	if err != nil {
		t.Fatalf("change shelf: %v", err)
	}
	if book.Shelf != domain.ShelfRead {
		t.Fatalf("expected returned shelf %q, got %q", domain.ShelfRead, book.Shelf)
	}

	// Catalog round-trip.
	fetched, err := cat.GetBook("A")
	if err != nil {
		t.Fatalf("fetch after change: %v", err)
	}
	if fetched.Shelf != domain.ShelfRead {
		t.Fatalf("expected catalog shelf %q, got %q", domain.ShelfRead, fetched.Shelf)
	}

	// Per-user document updated.
	entries, err := store.ShelfEntries("u1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Shelf != domain.ShelfRead {
		t.Fatalf("expected entry shelf %q, got %+v", domain.ShelfRead, entries)
	}

	// Optimistic in-memory reflect, no re-fetch needed.
	snapshot := s.Books()
	if len(snapshot) != 1 || snapshot[0].Shelf != domain.ShelfRead {
		t.Fatalf("expected in-memory shelf %q, got %+v", domain.ShelfRead, snapshot)
	}
}

func TestChangeShelfRejectsInvalidValue(t *testing.T) {
	s := New(&fakeCatalog{books: map[string]domain.Book{}}, docstore.NewMemoryStore())

	_, err := s.ChangeShelf(domain.Session{UserID: "u1"}, "A", domain.Shelf("bogus"))
	if !errors.Is(err, ErrInvalidShelf) {
		t.Fatalf("expected ErrInvalidShelf, got: %v", err)
	}
}

func TestChangeShelfFailureLeavesStateUntouched(t *testing.T) {
	store := docstore.NewMemoryStore()
	if err := store.SetEntryShelf("u1", "A", domain.ShelfWantToRead); err != nil {
		t.Fatalf("seed shelf: %v", err)
	}
	cat := &fakeCatalog{
		books:  map[string]domain.Book{"A": {ID: "A", Shelf: domain.ShelfWantToRead}},
		setErr: errors.New("catalog down"),
	}
	s := New(cat, store)
	sess := domain.Session{UserID: "u1"}

	if _, err := s.LoadUserShelf(sess); err != nil {
		t.Fatalf("load shelf: %v", err)
	}
	if _, err := s.ChangeShelf(sess, "A", domain.ShelfRead); err == nil {
		t.Fatalf("expected change shelf to fail")
	}

	entries, _ := store.ShelfEntries("u1")
	if entries[0].Shelf != domain.ShelfWantToRead {
		t.Fatalf("entry shelf changed despite failure: %+v", entries)
	}
	snapshot := s.Books()
	if snapshot[0].Shelf != domain.ShelfWantToRead {
		t.Fatalf("in-memory shelf changed despite failure: %+v", snapshot)
	}
	// Busy flag released on the failure path.
	if s.Updating(sess, "A") {
		t.Fatalf("busy flag not released after failure")
	}
}

func TestChangeShelfBlocksConcurrentSamePair(t *testing.T) {
	store := seededStore(t, "u1", "A")
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	cat := &fakeCatalog{
		books:   map[string]domain.Book{"A": {ID: "A"}, "B": {ID: "B"}},
		gate:    gate,
		entered: entered,
	}
	s := New(cat, store)
	sess := domain.Session{UserID: "u1"}

	done := make(chan error, 1)
	go func() {
		_, err := s.ChangeShelf(sess, "A", domain.ShelfRead)
		done <- err
	}()

	// Wait until the first change holds the busy flag.
	<-entered
	if !s.Updating(sess, "A") {
		t.Fatalf("expected busy flag while change is in flight")
	}

	if _, err := s.ChangeShelf(sess, "A", domain.ShelfWantToRead); !errors.Is(err, ErrUpdateInFlight) {
		t.Fatalf("expected ErrUpdateInFlight for same pair, got: %v", err)
	}
	// A different user changing the same book is not blocked by u1's flag.
	if s.Updating(domain.Session{UserID: "u2"}, "A") {
		t.Fatalf("busy flag leaked across users")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first change: %v", err)
	}
	if s.Updating(sess, "A") {
		t.Fatalf("busy flag not released after success")
	}
}

func TestAddToLibraryIsIdempotent(t *testing.T) {
	store := docstore.NewMemoryStore()
	s := New(&fakeCatalog{books: map[string]domain.Book{}}, store)
	sess := domain.Session{UserID: "u1"}

	if err := s.AddToLibrary(sess, "A"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := s.AddToLibrary(sess, "A"); err != nil {
		t.Fatalf("second add: %v", err)
	}
	entries, err := store.ShelfEntries("u1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry after double add, got %d", len(entries))
	}
}
