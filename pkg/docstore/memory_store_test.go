package docstore

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"bookshelf/pkg/domain"
)

func TestUpsertShelfEntryIsIdempotent(t *testing.T) {
	s := NewMemoryStore()

	if err := s.UpsertShelfEntry("u1", "b1"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertShelfEntry("u1", "b1"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	entries, err := s.ShelfEntries("u1")
	if err != nil {
		t.Fatalf("shelf entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry for the pair, got %d", len(entries))
	}
	if entries[0].AddedAt.IsZero() {
		t.Fatalf("expected server-assigned AddedAt")
	}
}

func TestUpsertShelfEntryPreservesShelf(t *testing.T) {
	s := NewMemoryStore()

	if err := s.UpsertShelfEntry("u1", "b1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.SetEntryShelf("u1", "b1", domain.ShelfRead); err != nil {
		t.Fatalf("set shelf: %v", err)
	}
	// Re-add merges; it must not clobber the shelf.
	if err := s.UpsertShelfEntry("u1", "b1"); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	entries, err := s.ShelfEntries("u1")
	if err != nil {
		t.Fatalf("shelf entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Shelf != domain.ShelfRead {
		t.Fatalf("expected preserved shelf %q, got %+v", domain.ShelfRead, entries)
	}
}

func TestShelfEntriesAreScopedByUser(t *testing.T) {
	s := NewMemoryStore()

	if err := s.SetEntryShelf("u1", "b1", domain.ShelfRead); err != nil {
		t.Fatalf("u1 shelf: %v", err)
	}
	if err := s.SetEntryShelf("u2", "b1", domain.ShelfWantToRead); err != nil {
		t.Fatalf("u2 shelf: %v", err)
	}

	u1, err := s.ShelfEntries("u1")
	if err != nil {
		t.Fatalf("u1 entries: %v", err)
	}
	u2, err := s.ShelfEntries("u2")
	if err != nil {
		t.Fatalf("u2 entries: %v", err)
	}
	if len(u1) != 1 || u1[0].Shelf != domain.ShelfRead {
		t.Fatalf("u1 shelf leaked: %+v", u1)
	}
	if len(u2) != 1 || u2[0].Shelf != domain.ShelfWantToRead {
		t.Fatalf("u2 shelf leaked: %+v", u2)
	}
}

func TestReviewsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC()

	for i, bookID := range []string{"a", "b", "c"} {
		review := domain.Review{
			ID:        uuid.NewString(),
			UserID:    "u1",
			BookID:    bookID,
			Text:      "review of " + bookID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AddReview(review); err != nil {
			t.Fatalf("add review: %v", err)
		}
	}

	reviews, err := s.ReviewsNewestFirst()
	if err != nil {
		t.Fatalf("reviews: %v", err)
	}
	if len(reviews) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(reviews))
	}
	if reviews[0].BookID != "c" || reviews[1].BookID != "b" || reviews[2].BookID != "a" {
		t.Fatalf("expected newest-first order c,b,a, got %+v", reviews)
	}
}
