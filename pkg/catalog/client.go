// Package catalog wraps the remote books REST API. The catalog is the source
// of truth for book metadata and search; every call is a single attempt with
// no caching or retries.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bookshelf/pkg/domain"
)

// ErrNotFound indicates the catalog has no book for the requested id.
var ErrNotFound = errors.New("book not found")

// APIError represents a catalog error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client calls the books API over HTTP. Every request carries the static
// Authorization token the API was provisioned with.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a catalog client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ListBooks fetches the full catalog snapshot.
func (c *Client) ListBooks() ([]domain.Book, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/books", nil)
	if err != nil {
		return nil, err
	}

	var resp booksResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Books, nil
}

// SearchBooks runs a server-side keyword search. Callers gate on query length;
// the API itself accepts any non-empty query.
func (c *Client) SearchBooks(query string, maxResults int) ([]domain.Book, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	payload, err := json.Marshal(searchRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp booksResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Books, nil
}

// GetBook fetches a single book by catalog id. A non-success response maps to
// ErrNotFound so joins can skip missing entries.
func (c *Client) GetBook(id string) (domain.Book, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/books/%s", c.baseURL, id), nil)
	if err != nil {
		return domain.Book{}, err
	}

	var resp bookResponse
	if err := c.do(req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return domain.Book{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return domain.Book{}, err
	}
	return resp.Book, nil
}

// SetShelf assigns a shelf to a book on the remote catalog. The operation is
// idempotent: setting the same shelf twice yields the same server state.
func (c *Client) SetShelf(id string, shelf domain.Shelf) (domain.Book, error) {
	payload, err := json.Marshal(shelfRequest{Shelf: shelf})
	if err != nil {
		return domain.Book{}, err
	}
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/books/%s", c.baseURL, id), bytes.NewReader(payload))
	if err != nil {
		return domain.Book{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp bookResponse
	if err := c.do(req, &resp); err != nil {
		return domain.Book{}, err
	}
	return resp.Book, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type booksResponse struct {
	Books []domain.Book `json:"books"`
}

type bookResponse struct {
	Book domain.Book `json:"book"`
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

type shelfRequest struct {
	Shelf domain.Shelf `json:"shelf"`
}
