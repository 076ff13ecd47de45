package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/chatroom-server/internal/store/sqlite"
)

const testSecret = "test-secret-change-me"

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte(testSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidUsername(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, Registration{Name: "A", Username: "ab", Password: "password123"}); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}

	// Should be validated after trimming whitespace.
	if _, _, err := svc.Register(ctx, Registration{Name: "A", Username: " ab ", Password: "password123"}); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}

func TestRegister_RejectsInvalidPasswordAndName(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, Registration{Name: "A", Username: "abc", Password: "12345"}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, _, err := svc.Register(ctx, Registration{Name: "  ", Username: "abc", Password: "123456"}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestRegister_TrimsUsernameAndCreatesUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, Registration{Name: "Alice", Username: " alice ", Password: "password123"})
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" || user.Username != "alice" {
		t.Fatalf("unexpected registration result: %+v %q", user, token)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("token should validate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected token subject %s, got %s", user.ID, claims.UserID)
	}

	// Should collide because the stored username is trimmed.
	if _, _, err := svc.Register(ctx, Registration{Name: "Alice", Username: "alice", Password: "password123"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, Registration{Name: "Bob", Username: "bob", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "bob", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	user, token, err := svc.Login(ctx, "bob", "secret1")
	if err != nil || token == "" || user.Name != "Bob" {
		t.Fatalf("expected login success, got %v", err)
	}
}

func TestValidateToken_RejectsExpiredAndForeign(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte(testSecret), Issuer: "test", TTL: time.Minute}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, _ := expired.SignedString([]byte(testSecret))
	if _, err := ValidateToken(cfg, signed); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	foreign, _ := GenerateToken(&JWTConfig{Secret: []byte("other"), Issuer: "test", TTL: time.Minute}, "u1")
	if _, err := ValidateToken(cfg, foreign); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}

	wrongIssuer, _ := GenerateToken(&JWTConfig{Secret: []byte(testSecret), Issuer: "else", TTL: time.Minute}, "u1")
	if _, err := ValidateToken(cfg, wrongIssuer); err == nil {
		t.Fatalf("expected wrong issuer to fail")
	}

	if _, err := ValidateToken(cfg, "not-a-jwt"); err == nil {
		t.Fatalf("expected malformed token to fail")
	}
}

func TestAuthenticator(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()
	authn := NewAuthenticator(svc, "chatroom-token")

	user, token, err := svc.Register(ctx, Registration{Name: "Carol", Username: "carol", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	withCookie := httptest.NewRequest(http.MethodGet, "/ws", nil)
	withCookie.AddCookie(&http.Cookie{Name: "chatroom-token", Value: token})
	id, err := authn.Authenticate(withCookie)
	if err != nil {
		t.Fatalf("cookie credential should authenticate: %v", err)
	}
	if id.UserID != user.ID || id.Name != "Carol" {
		t.Fatalf("unexpected identity: %+v", id)
	}

	withHeader := httptest.NewRequest(http.MethodGet, "/ws", nil)
	withHeader.Header.Set("Authorization", "Bearer "+token)
	if _, err := authn.Authenticate(withHeader); err != nil {
		t.Fatalf("bearer credential should authenticate: %v", err)
	}

	// A stale cookie does not shadow a valid bearer header.
	staleCookie := httptest.NewRequest(http.MethodGet, "/ws", nil)
	staleCookie.AddCookie(&http.Cookie{Name: "chatroom-token", Value: "expired-or-garbage"})
	staleCookie.Header.Set("Authorization", "Bearer "+token)
	id, err = authn.Authenticate(staleCookie)
	if err != nil {
		t.Fatalf("bearer credential should authenticate despite stale cookie: %v", err)
	}
	if id.UserID != user.ID {
		t.Fatalf("unexpected identity: %+v", id)
	}

	badBoth := httptest.NewRequest(http.MethodGet, "/ws", nil)
	badBoth.AddCookie(&http.Cookie{Name: "chatroom-token", Value: "garbage"})
	badBoth.Header.Set("Authorization", "Bearer garbage")
	if _, err := authn.Authenticate(badBoth); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	missing := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if _, err := authn.Authenticate(missing); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	ghostToken, _ := GenerateToken(svc.jwtConfig, "ghost")
	ghost := httptest.NewRequest(http.MethodGet, "/ws", nil)
	ghost.AddCookie(&http.Cookie{Name: "chatroom-token", Value: ghostToken})
	if _, err := authn.Authenticate(ghost); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for deleted user, got %v", err)
	}
}
