// Package docstore persists the per-user collections: user records, shelf
// entries (user_books), and reviews. Books themselves are never stored here;
// the remote catalog owns them.
package docstore

import "bookshelf/pkg/domain"

// EntryKey is the document identity for a shelf entry. Using the composite
// key makes re-adds idempotent: a second add for the same pair merges into
// the existing document instead of duplicating it.
func EntryKey(userID, bookID string) string {
	return userID + "_" + bookID
}

// Store defines persistence operations for users, shelf entries, and reviews.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// user_books
	UpsertShelfEntry(userID, bookID string) error
	SetEntryShelf(userID, bookID string, shelf domain.Shelf) error
	ShelfEntries(userID string) ([]domain.ShelfEntry, error)

	// reviews
	AddReview(domain.Review) error
	ReviewsNewestFirst() ([]domain.Review, error)
}
