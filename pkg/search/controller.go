// Package search drives the catalog browse/search result set for a screen.
// Free-text input is debounced with a trailing-edge quiet window, short terms
// never reach the network, and a generation counter guarantees that a slow
// stale response can never overwrite the result of a newer request.
package search

import (
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"bookshelf/pkg/domain"
)

// MinQueryLength is the shortest term, counted in runes, that triggers a
// search request.
const MinQueryLength = 3

// DefaultDebounce is the quiet window before a search fires.
const DefaultDebounce = 500 * time.Millisecond

// State is the observable mode of the controller.
type State string

const (
	StateBrowsing  State = "browsing"
	StateSearching State = "searching"
)

// Searcher is the subset of the catalog client the controller needs.
type Searcher interface {
	ListBooks() ([]domain.Book, error)
	SearchBooks(query string, maxResults int) ([]domain.Book, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides the quiet window. Tests use short windows.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithMaxResults overrides the search result cap.
func WithMaxResults(n int) Option {
	return func(c *Controller) { c.maxResults = n }
}

// WithUpdateFunc registers a sink invoked with every applied result set.
func WithUpdateFunc(fn func([]domain.Book)) Option {
	return func(c *Controller) { c.onUpdate = fn }
}

// Controller owns the in-memory result set for one catalog screen. It is safe
// for concurrent use, though a screen normally drives it from one goroutine.
type Controller struct {
	searcher   Searcher
	debounce   time.Duration
	maxResults int
	onUpdate   func([]domain.Book)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	state State
	books []domain.Book
}

// NewController constructs a controller in the browsing state with an empty
// result set. Call Browse to load the initial catalog snapshot.
func NewController(searcher Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher:   searcher,
		debounce:   DefaultDebounce,
		maxResults: 50,
		state:      StateBrowsing,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Browse fetches the full catalog snapshot, discarding any pending search.
// A failure keeps the previous result set visible.
func (c *Controller) Browse() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.state = StateBrowsing
	gen := c.nextGenLocked()
	c.mu.Unlock()

	books, err := c.searcher.ListBooks()
	if err != nil {
		slog.Warn("catalog list failed", "err", err)
		return
	}
	c.apply(gen, books)
}

// SetQuery feeds one input change into the controller.
//
// Empty input returns to browsing and refetches the full list. Terms shorter
// than MinQueryLength cancel any pending search and leave the current results
// untouched. Longer terms (re)schedule a single trailing-edge debounced
// search; only the last term typed within the quiet window fires.
func (c *Controller) SetQuery(text string) {
	if len(text) == 0 {
		c.Browse()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	if utf8.RuneCountInString(text) < MinQueryLength {
		return
	}
	// The generation is claimed at schedule time. A Browse issued before the
	// callback runs bumps past it, so the callback stays superseded even when
	// the timer had already fired and Stop came too late to cancel it.
	gen := c.nextGenLocked()
	c.timer = time.AfterFunc(c.debounce, func() {
		c.fire(text, gen)
	})
}

// fire runs the debounced search for text under the generation claimed when
// the search was scheduled.
func (c *Controller) fire(text string, gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateSearching
	c.mu.Unlock()

	books, err := c.searcher.SearchBooks(text, c.maxResults)
	if err != nil {
		slog.Warn("catalog search failed", "query", text, "err", err)
		return
	}
	c.apply(gen, books)
}

// apply installs a result set unless a newer request has been issued since.
func (c *Controller) apply(gen uint64, books []domain.Book) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.books = books
	onUpdate := c.onUpdate
	c.mu.Unlock()
	if onUpdate != nil {
		onUpdate(books)
	}
}

// Books returns the currently rendered result set.
func (c *Controller) Books() []domain.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Book, len(c.books))
	copy(out, c.books)
	return out
}

// State returns the observable browsing/searching mode.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close cancels any pending debounced search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) nextGenLocked() uint64 {
	c.gen++
	return c.gen
}
