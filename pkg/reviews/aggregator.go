// Package reviews records book reviews and materializes them for display,
// grouped by book with the most recently reviewed book first.
package reviews

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bookshelf/pkg/auth"
	"bookshelf/pkg/domain"
)

// fetchConcurrency bounds the catalog fan-in when resolving review groups.
const fetchConcurrency = 8

// Catalog is the subset of the catalog client the aggregator needs.
type Catalog interface {
	GetBook(id string) (domain.Book, error)
}

// Store is the subset of the document store the aggregator needs.
type Store interface {
	AddReview(domain.Review) error
	ReviewsNewestFirst() ([]domain.Review, error)
}

// Section is one display group: a book and its reviews, newest first.
type Section struct {
	Book    domain.Book     `json:"book"`
	Reviews []domain.Review `json:"reviews"`
}

// Aggregator loads and groups reviews, joining them against the catalog.
type Aggregator struct {
	catalog Catalog
	store   Store
}

// New constructs an aggregator.
func New(catalog Catalog, store Store) *Aggregator {
	return &Aggregator{catalog: catalog, store: store}
}

// Add records a review for a book. The text must be non-empty after
// trimming; this is checked before any store call. The store-visible id and
// timestamp are assigned here.
func (a *Aggregator) Add(sess domain.Session, bookID, text string) (domain.Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Review{}, &auth.ValidationError{Field: "review", Message: "review text is required"}
	}
	if bookID == "" {
		return domain.Review{}, &auth.ValidationError{Field: "bookId", Message: "book id is required"}
	}
	review := domain.Review{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		BookID:    bookID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AddReview(review); err != nil {
		return domain.Review{}, fmt.Errorf("save review: %w", err)
	}
	return review, nil
}

// LoadSections fetches all reviews newest-first and groups them by book.
// Sections appear in the order their book was first encountered in the
// newest-first stream, so the book with the most recent review leads.
// Grouping preserves the inner newest-first order. A book that no longer
// resolves against the catalog drops its whole section.
func (a *Aggregator) LoadSections() ([]Section, error) {
	all, err := a.store.ReviewsNewestFirst()
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	if len(all) == 0 {
		return []Section{}, nil
	}

	grouped := make(map[string][]domain.Review)
	bookIDs := make([]string, 0)
	for _, review := range all {
		if _, seen := grouped[review.BookID]; !seen {
			bookIDs = append(bookIDs, review.BookID)
		}
		grouped[review.BookID] = append(grouped[review.BookID], review)
	}

	resolved := make([]*domain.Book, len(bookIDs))
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, id := range bookIDs {
		g.Go(func() error {
			book, err := a.catalog.GetBook(id)
			if err != nil {
				slog.Warn("dropping review section for unresolvable book", "book_id", id, "err", err)
				return nil
			}
			resolved[i] = &book
			return nil
		})
	}
	// All fetches settle before sections are assembled.
	_ = g.Wait()

	sections := make([]Section, 0, len(bookIDs))
	for i, id := range bookIDs {
		if resolved[i] == nil {
			continue
		}
		sections = append(sections, Section{Book: *resolved[i], Reviews: grouped[id]})
	}
	return sections, nil
}
