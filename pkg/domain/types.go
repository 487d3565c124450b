package domain

import "time"

// Shelf is the per-user status tag for a book.
type Shelf string

const (
	ShelfCurrentlyReading Shelf = "currentlyReading"
	ShelfWantToRead       Shelf = "wantToRead"
	ShelfRead             Shelf = "read"
	ShelfNone             Shelf = "none"
)

// ValidShelf reports whether s is one of the assignable shelf values.
func ValidShelf(s Shelf) bool {
	switch s {
	case ShelfCurrentlyReading, ShelfWantToRead, ShelfRead, ShelfNone:
		return true
	default:
		return false
	}
}

// ImageLinks carries cover art URLs as the catalog API returns them.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail,omitempty"`
	Thumbnail      string `json:"thumbnail,omitempty"`
}

// Book is the catalog record. The remote catalog owns every field; this
// system only reads books and issues shelf mutations against them.
type Book struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle,omitempty"`
	Authors       []string   `json:"authors,omitempty"`
	Publisher     string     `json:"publisher,omitempty"`
	PublishedDate string     `json:"publishedDate,omitempty"`
	PageCount     int        `json:"pageCount,omitempty"`
	AverageRating float64    `json:"averageRating,omitempty"`
	Description   string     `json:"description,omitempty"`
	ImageLinks    ImageLinks `json:"imageLinks"`
	Shelf         Shelf      `json:"shelf,omitempty"`
}

// ShelfEntry links a user to a shelved book. At most one entry exists per
// (UserID, BookID) pair; the document key is the composite userID_bookID.
type ShelfEntry struct {
	UserID  string    `json:"userId"`
	BookID  string    `json:"bookId"`
	Shelf   Shelf     `json:"shelf,omitempty"`
	AddedAt time.Time `json:"addedAt"`
}

// Review is a free-text book review. Many per book, many per user.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	Text      string    `json:"review"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session identifies the signed-in user for a single operation. It is
// resolved from the presented token at call time and passed explicitly;
// nothing in the module caches the current user.
type Session struct {
	UserID string `json:"userId"`
}
