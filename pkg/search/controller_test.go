package search

import (
	"errors"
	"sync"
	"testing"
	"time"

	"bookshelf/pkg/domain"
)

type fakeSearcher struct {
	mu            sync.Mutex
	listCalls     int
	searchCalls   []string
	listBooks     []domain.Book
	listErr       error
	searchErr     error
	searchGate    chan struct{} // when set, SearchBooks blocks until closed
	searchEntered chan string   // when set, receives the query per call
}

func (f *fakeSearcher) ListBooks() ([]domain.Book, error) {
	f.mu.Lock()
	f.listCalls++
	books, err := f.listBooks, f.listErr
	f.mu.Unlock()
	return books, err
}

func (f *fakeSearcher) SearchBooks(query string, maxResults int) ([]domain.Book, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, query)
	gate := f.searchGate
	entered := f.searchEntered
	err := f.searchErr
	f.mu.Unlock()
	if entered != nil {
		entered <- query
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []domain.Book{{ID: "result:" + query, Title: query}}, nil
}

func (f *fakeSearcher) calls() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, append([]string(nil), f.searchCalls...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestShortQueryIssuesNoRequests(t *testing.T) {
	f := &fakeSearcher{}
	c := NewController(f, WithDebounce(5*time.Millisecond))
	defer c.Close()

	c.SetQuery("a")
	c.SetQuery("ab")
	time.Sleep(30 * time.Millisecond)

	lists, searches := f.calls()
	if lists != 0 || len(searches) != 0 {
		t.Fatalf("expected zero network calls for short input, got lists=%d searches=%v", lists, searches)
	}
}

func TestRapidKeystrokesCollapseToOneSearch(t *testing.T) {
	f := &fakeSearcher{}
	c := NewController(f, WithDebounce(20*time.Millisecond))
	defer c.Close()

	terms := []string{"abc", "abcd", "abcde", "abcdef", "abcdefg", "abcdefgh", "abcdefghi", "abcdefghij", "abcdefghijk", "golang"}
	for _, term := range terms {
		c.SetQuery(term)
		time.Sleep(time.Millisecond)
	}

	waitFor(t, time.Second, func() bool {
		_, searches := f.calls()
		return len(searches) == 1
	})

	waitFor(t, time.Second, func() bool {
		books := c.Books()
		return len(books) == 1 && books[0].Title == "golang"
	})

	_, searches := f.calls()
	if len(searches) != 1 || searches[0] != "golang" {
		t.Fatalf("expected exactly one search for the last term, got %v", searches)
	}
	if c.State() != StateSearching {
		t.Fatalf("expected searching state, got %q", c.State())
	}
	books := c.Books()
	if len(books) != 1 || books[0].Title != "golang" {
		t.Fatalf("unexpected result set: %+v", books)
	}
}

func TestEmptyInputReturnsToBrowsing(t *testing.T) {
	f := &fakeSearcher{listBooks: []domain.Book{{ID: "a"}, {ID: "b"}}}
	c := NewController(f, WithDebounce(5*time.Millisecond))
	defer c.Close()

	c.SetQuery("")

	lists, _ := f.calls()
	if lists != 1 {
		t.Fatalf("expected one list call, got %d", lists)
	}
	if c.State() != StateBrowsing {
		t.Fatalf("expected browsing state, got %q", c.State())
	}
	if got := c.Books(); len(got) != 2 {
		t.Fatalf("expected browse results, got %+v", got)
	}
}

func TestStaleSearchResultIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan string, 1)
	f := &fakeSearcher{
		listBooks:     []domain.Book{{ID: "fresh"}},
		searchGate:    gate,
		searchEntered: entered,
	}
	c := NewController(f, WithDebounce(time.Millisecond))
	defer c.Close()

	c.SetQuery("abc")
	<-entered // the search request is now in flight

	// Clearing the input issues a newer browse request while the search is
	// still pending.
	c.SetQuery("")

	close(gate) // the stale search now resolves
	time.Sleep(20 * time.Millisecond)

	books := c.Books()
	if len(books) != 1 || books[0].ID != "fresh" {
		t.Fatalf("stale search result overwrote newer browse result: %+v", books)
	}
	if c.State() != StateBrowsing {
		t.Fatalf("expected browsing state, got %q", c.State())
	}
}

func TestLateDebounceCallbackAfterClearIsDiscarded(t *testing.T) {
	f := &fakeSearcher{listBooks: []domain.Book{{ID: "fresh"}}}
	c := NewController(f, WithDebounce(time.Hour))
	defer c.Close()

	c.SetQuery("abc")
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	// Clearing the input stops the timer, but a callback that has already
	// started is past Stop. Invoke it directly to model that interleaving.
	c.SetQuery("")
	c.fire("abc", gen)

	if _, searches := f.calls(); len(searches) != 0 {
		t.Fatalf("superseded callback must not search, got %v", searches)
	}
	books := c.Books()
	if len(books) != 1 || books[0].ID != "fresh" {
		t.Fatalf("cleared input rendered stale search results: %+v", books)
	}
	if c.State() != StateBrowsing {
		t.Fatalf("expected browsing state, got %q", c.State())
	}
}

func TestQueryLengthCountsRunes(t *testing.T) {
	f := &fakeSearcher{}
	c := NewController(f, WithDebounce(time.Millisecond))
	defer c.Close()

	// One CJK character is three bytes but still a single-rune term.
	c.SetQuery("本")
	c.SetQuery("日本")
	time.Sleep(20 * time.Millisecond)
	if _, searches := f.calls(); len(searches) != 0 {
		t.Fatalf("expected no search below three runes, got %v", searches)
	}

	c.SetQuery("日本語")
	waitFor(t, time.Second, func() bool {
		_, searches := f.calls()
		return len(searches) == 1
	})
	if _, searches := f.calls(); searches[0] != "日本語" {
		t.Fatalf("unexpected search term %q", searches[0])
	}
}

func TestFailedSearchKeepsPreviousResults(t *testing.T) {
	f := &fakeSearcher{listBooks: []domain.Book{{ID: "a"}}}
	c := NewController(f, WithDebounce(time.Millisecond))
	defer c.Close()

	c.Browse()
	if got := c.Books(); len(got) != 1 {
		t.Fatalf("expected browse results, got %+v", got)
	}

	f.mu.Lock()
	f.searchErr = errors.New("catalog down")
	f.mu.Unlock()

	c.SetQuery("abc")
	waitFor(t, time.Second, func() bool {
		_, searches := f.calls()
		return len(searches) == 1
	})
	time.Sleep(10 * time.Millisecond)

	if got := c.Books(); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("failed search must keep previous results, got %+v", got)
	}
}

func TestUpdateFuncReceivesAppliedResults(t *testing.T) {
	var mu sync.Mutex
	var delivered [][]domain.Book
	f := &fakeSearcher{listBooks: []domain.Book{{ID: "a"}}}
	c := NewController(f,
		WithDebounce(time.Millisecond),
		WithUpdateFunc(func(books []domain.Book) {
			mu.Lock()
			delivered = append(delivered, books)
			mu.Unlock()
		}),
	)
	defer c.Close()

	c.Browse()

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || len(delivered[0]) != 1 {
		t.Fatalf("expected one delivery with browse results, got %+v", delivered)
	}
}
