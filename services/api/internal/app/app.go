// Package app wires the catalog client, document store, identity provider
// and the shelf/review domain logic into one core used by the HTTP server.
package app

import (
	"fmt"
	"time"
	"unicode/utf8"

	"bookshelf/pkg/catalog"
	"bookshelf/pkg/docstore"
	"bookshelf/pkg/domain"
	"bookshelf/pkg/identity"
	"bookshelf/pkg/reviews"
	"bookshelf/pkg/search"
	"bookshelf/pkg/shelf"
)

// Config holds runtime configuration for the core application.
type Config struct {
	CatalogBaseURL string
	CatalogToken   string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	SessionTTL     time.Duration
	JWTSecret      string

	// Test seams. When nil, production implementations are constructed
	// from the fields above.
	Catalog  *catalog.Client
	Store    docstore.Store
	Sessions identity.SessionStore
}

// App is the core application service.
type App struct {
	catalog  *catalog.Client
	store    docstore.Store
	identity *identity.Provider
	shelf    *shelf.Synchronizer
	reviews  *reviews.Aggregator
}

// New constructs the application with a Postgres-backed document store and a
// JWT or Redis session store.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	catalogClient := cfg.Catalog
	if catalogClient == nil {
		if cfg.CatalogBaseURL == "" {
			return nil, fmt.Errorf("catalog base URL required")
		}
		catalogClient = catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogToken)
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required (no in-memory store allowed)")
		}
		var err error
		dataStore, err = docstore.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch {
		case cfg.JWTSecret != "":
			sessionStore = identity.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
		case cfg.RedisAddr != "":
			sessionStore = identity.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("session store required (jwtSecret or redisAddr)")
		}
	}

	return &App{
		catalog:  catalogClient,
		store:    dataStore,
		identity: identity.NewProvider(dataStore, sessionStore),
		shelf:    shelf.New(catalogClient, dataStore),
		reviews:  reviews.New(catalogClient, dataStore),
	}, nil
}

// SignUp registers a new user and issues a session token.
func (a *App) SignUp(email, password string) (domain.User, string, error) {
	return a.identity.SignUp(email, password)
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	return a.identity.SignIn(email, password)
}

// Logout removes a session token.
func (a *App) Logout(token string) error {
	return a.identity.SignOut(token)
}

// SessionFromToken resolves a presented token into a session.
func (a *App) SessionFromToken(token string) (domain.Session, bool) {
	return a.identity.SessionFromToken(token)
}

// UserFromToken resolves the full user record behind a token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	return a.identity.UserFromToken(token)
}

// Books lists the catalog, or searches it when query is at least the minimum
// search length. Shorter non-empty queries fall back to the full list.
func (a *App) Books(query string) ([]domain.Book, error) {
	if utf8.RuneCountInString(query) >= search.MinQueryLength {
		return a.catalog.SearchBooks(query, 0)
	}
	return a.catalog.ListBooks()
}

// Book fetches one book by catalog ID.
func (a *App) Book(id string) (domain.Book, error) {
	return a.catalog.GetBook(id)
}

// UserShelf loads the calling user's shelf with catalog details resolved.
func (a *App) UserShelf(sess domain.Session) ([]domain.Book, error) {
	return a.shelf.LoadUserShelf(sess)
}

// AddToLibrary records a book on the user's shelf. Idempotent.
func (a *App) AddToLibrary(sess domain.Session, bookID string) error {
	return a.shelf.AddToLibrary(sess, bookID)
}

// ChangeShelf moves a book between the user's shelves.
func (a *App) ChangeShelf(sess domain.Session, bookID string, sh domain.Shelf) (domain.Book, error) {
	return a.shelf.ChangeShelf(sess, bookID, sh)
}

// ReviewSections returns all reviews grouped per book, newest books first.
func (a *App) ReviewSections() ([]reviews.Section, error) {
	return a.reviews.LoadSections()
}

// AddReview stores a new review authored by the session user.
func (a *App) AddReview(sess domain.Session, bookID, text string) (domain.Review, error) {
	return a.reviews.Add(sess, bookID, text)
}
