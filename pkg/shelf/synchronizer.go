// Package shelf reconciles a user's shelved books against the remote catalog
// and the document store. Shelf status is per-user: the user_books document
// holds the authoritative value, while the catalog PUT is still issued because
// the remote API owns the shelf field on its own Book record.
package shelf

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"bookshelf/pkg/docstore"
	"bookshelf/pkg/domain"
)

// ErrUpdateInFlight indicates a shelf change for the same (user, book) pair
// is still running. Other pairs stay interactive concurrently.
var ErrUpdateInFlight = errors.New("shelf update already in flight")

// ErrInvalidShelf indicates an unknown shelf value, rejected before any
// network call.
var ErrInvalidShelf = errors.New("invalid shelf value")

// fetchConcurrency bounds the catalog fan-in when materializing a shelf.
const fetchConcurrency = 8

// Catalog is the subset of the catalog client the synchronizer needs.
type Catalog interface {
	GetBook(id string) (domain.Book, error)
	SetShelf(id string, shelf domain.Shelf) (domain.Book, error)
}

// Entries is the subset of the document store the synchronizer needs.
type Entries interface {
	ShelfEntries(userID string) ([]domain.ShelfEntry, error)
	UpsertShelfEntry(userID, bookID string) error
	SetEntryShelf(userID, bookID string, shelf domain.Shelf) error
}

// Synchronizer materializes a user's shelf and applies shelf changes with a
// per-pair busy flag so a double-submit on one book never races itself while
// other books remain updatable in parallel.
type Synchronizer struct {
	catalog Catalog
	entries Entries

	mu       sync.Mutex
	updating map[string]bool
	books    []domain.Book
}

// New constructs a synchronizer.
func New(catalog Catalog, entries Entries) *Synchronizer {
	return &Synchronizer{
		catalog:  catalog,
		entries:  entries,
		updating: make(map[string]bool),
	}
}

// LoadUserShelf resolves the user's shelf entries into full catalog records.
// Individual missing books are dropped rather than failing the whole load;
// the per-user shelf from the entry overrides the catalog's shared field.
// The resolved slice is also retained as the current in-memory shelf view.
func (s *Synchronizer) LoadUserShelf(sess domain.Session) ([]domain.Book, error) {
	entries, err := s.entries.ShelfEntries(sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("query shelf entries: %w", err)
	}
	if len(entries) == 0 {
		s.setBooks(nil)
		return []domain.Book{}, nil
	}

	// Defensive dedup: the composite document key guarantees uniqueness for
	// new writes, but legacy duplicates must not produce duplicate cards.
	seen := make(map[string]bool, len(entries))
	distinct := make([]domain.ShelfEntry, 0, len(entries))
	for _, entry := range entries {
		if seen[entry.BookID] {
			continue
		}
		seen[entry.BookID] = true
		distinct = append(distinct, entry)
	}

	resolved := make([]*domain.Book, len(distinct))
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, entry := range distinct {
		g.Go(func() error {
			book, err := s.catalog.GetBook(entry.BookID)
			if err != nil {
				slog.Warn("skipping unresolvable shelf entry", "book_id", entry.BookID, "err", err)
				return nil
			}
			if entry.Shelf != "" {
				book.Shelf = entry.Shelf
			}
			resolved[i] = &book
			return nil
		})
	}
	// All fetches settle before results are consumed.
	_ = g.Wait()

	books := make([]domain.Book, 0, len(resolved))
	for _, book := range resolved {
		if book != nil {
			books = append(books, *book)
		}
	}
	s.setBooks(books)
	return books, nil
}

// AddToLibrary shelves a book for the user. Re-adding is a no-op beyond
// refreshing the entry's AddedAt.
func (s *Synchronizer) AddToLibrary(sess domain.Session, bookID string) error {
	if bookID == "" {
		return errors.New("book id required")
	}
	if err := s.entries.UpsertShelfEntry(sess.UserID, bookID); err != nil {
		return fmt.Errorf("upsert shelf entry: %w", err)
	}
	return nil
}

// ChangeShelf reassigns a book's shelf. While a change for the pair is in
// flight further changes for it are rejected; the busy flag is released on
// every exit path. On success the in-memory shelf view reflects the new
// shelf without a re-fetch.
func (s *Synchronizer) ChangeShelf(sess domain.Session, bookID string, shelf domain.Shelf) (domain.Book, error) {
	if !domain.ValidShelf(shelf) {
		return domain.Book{}, fmt.Errorf("%w: %q", ErrInvalidShelf, shelf)
	}

	key := docstore.EntryKey(sess.UserID, bookID)
	s.mu.Lock()
	if s.updating[key] {
		s.mu.Unlock()
		return domain.Book{}, ErrUpdateInFlight
	}
	s.updating[key] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.updating, key)
		s.mu.Unlock()
	}()

	book, err := s.catalog.SetShelf(bookID, shelf)
	if err != nil {
		return domain.Book{}, fmt.Errorf("set shelf on catalog: %w", err)
	}
	if err := s.entries.SetEntryShelf(sess.UserID, bookID, shelf); err != nil {
		return domain.Book{}, fmt.Errorf("record shelf entry: %w", err)
	}

	book.Shelf = shelf
	s.reflectShelf(bookID, shelf)
	return book, nil
}

// Updating reports whether a shelf change for the pair is in flight. It is
// the UI-observable busy flag.
func (s *Synchronizer) Updating(sess domain.Session, bookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updating[docstore.EntryKey(sess.UserID, bookID)]
}

// Books returns the current in-memory shelf view from the last load.
func (s *Synchronizer) Books() []domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Book, len(s.books))
	copy(out, s.books)
	return out
}

func (s *Synchronizer) setBooks(books []domain.Book) {
	s.mu.Lock()
	s.books = books
	s.mu.Unlock()
}

func (s *Synchronizer) reflectShelf(bookID string, shelf domain.Shelf) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID == bookID {
			s.books[i].Shelf = shelf
		}
	}
}
