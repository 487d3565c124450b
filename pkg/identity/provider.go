// Package identity wraps sign-in/sign-up and session resolution. Operations
// elsewhere in the module take an explicit domain.Session resolved here per
// request; there is no ambient "current user".
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshelf/internal/util"
	"bookshelf/pkg/auth"
	"bookshelf/pkg/docstore"
	"bookshelf/pkg/domain"
)

var (
	// ErrInvalidCredentials indicates an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailInUse indicates a sign-up against an already registered email.
	ErrEmailInUse = errors.New("email already registered")
)

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// Provider authenticates users against the document store and manages their
// sessions.
type Provider struct {
	store    docstore.Store
	sessions SessionStore
}

// NewProvider constructs the identity provider.
func NewProvider(store docstore.Store, sessions SessionStore) *Provider {
	return &Provider{store: store, sessions: sessions}
}

// SignUp registers a new user and issues a session token. Email and password
// are validated before any store access; sign-up passwords must satisfy the
// registration policy.
func (p *Provider) SignUp(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := auth.ValidateEmail(email); err != nil {
		return domain.User{}, "", err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	exists, err := p.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailInUse
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := p.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// SignIn validates credentials and issues a session token. Only the email
// format is checked client-side; existing passwords predate the policy.
func (p *Provider) SignIn(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := auth.ValidateEmail(email); err != nil {
		return domain.User{}, "", err
	}
	if password == "" {
		return domain.User{}, "", &auth.ValidationError{Field: "password", Message: "password is required"}
	}
	user, ok, err := p.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := p.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// SessionFromToken resolves a presented token into a session for the calling
// operation. It verifies the user still exists so tokens outlive neither
// sign-out nor account removal.
func (p *Provider) SessionFromToken(token string) (domain.Session, bool) {
	uid, ok, err := p.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.Session{}, false
	}
	_, found, err := p.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.Session{}, false
	}
	return domain.Session{UserID: uid}, true
}

// UserFromToken resolves the full user record behind a token.
func (p *Provider) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := p.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := p.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// SignOut removes a session token.
func (p *Provider) SignOut(token string) error {
	return p.sessions.DeleteSession(token)
}
