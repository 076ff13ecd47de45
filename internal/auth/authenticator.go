package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated wraps every reason a credential is refused.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the account bound to an admitted connection or request.
type Identity struct {
	UserID string
	Name   string
}

// Authenticator verifies the session credential attached to an HTTP request,
// either the session cookie or an "Authorization: Bearer" header.
type Authenticator struct {
	service    *Service
	cookieName string
}

// NewAuthenticator builds an Authenticator reading the given cookie name.
func NewAuthenticator(service *Service, cookieName string) *Authenticator {
	return &Authenticator{service: service, cookieName: cookieName}
}

// CookieName returns the session cookie name.
func (a *Authenticator) CookieName() string {
	return a.cookieName
}

// Authenticate validates the request credential and resolves it to an existing user.
// The session cookie is tried first; a bearer header is used when the cookie is
// absent or refused. Every failure wraps ErrUnauthenticated.
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	tokens := a.credentials(r)
	if len(tokens) == 0 {
		return Identity{}, fmt.Errorf("%w: missing credential", ErrUnauthenticated)
	}

	var lastErr error
	for _, token := range tokens {
		identity, err := a.resolve(r, token)
		if err == nil {
			return identity, nil
		}
		lastErr = err
	}
	return Identity{}, lastErr
}

func (a *Authenticator) resolve(r *http.Request, token string) (Identity, error) {
	claims, err := a.service.ValidateToken(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := a.service.UserByID(r.Context(), claims.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: user %s: %v", ErrUnauthenticated, claims.UserID, err)
	}

	return Identity{UserID: user.ID, Name: user.Name}, nil
}

func (a *Authenticator) credentials(r *http.Request) []string {
	var tokens []string
	if a.cookieName != "" {
		if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
			tokens = append(tokens, c.Value)
		}
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		if token := strings.TrimSpace(parts[1]); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
