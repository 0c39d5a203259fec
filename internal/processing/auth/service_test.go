package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

type fakeSessionStore struct {
	sessions map[string]string
	putErr   error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]string)}
}

func (f *fakeSessionStore) Put(_ context.Context, token, identity string, _ time.Duration) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.sessions[token] = identity
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, token string) (string, error) {
	identity, ok := f.sessions[token]
	if !ok {
		return "", ErrNoSession
	}
	return identity, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

// tokenEndpoint serves the provider's token exchange. idToken empty means
// the response omits the id_token field.
func tokenEndpoint(t *testing.T, status int, idToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		body := map[string]any{
			"access_token": "at-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if idToken != "" {
			body["id_token"] = idToken
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func newExchangeService(t *testing.T, store SessionStore, tokenURL string) *Service {
	t.Helper()
	svc := NewService(store, OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
	}, time.Hour, nil)
	svc.oauth.Endpoint = oauth2.Endpoint{TokenURL: tokenURL}
	return svc
}

func TestLogin_HappyPath(t *testing.T) {
	idToken := signedIDToken(t, jwt.MapClaims{"email": "user@example.com", "sub": "123"})
	srv := tokenEndpoint(t, http.StatusOK, idToken)
	defer srv.Close()

	store := newFakeSessionStore()
	svc := newExchangeService(t, store, srv.URL+"/token")

	identity, token, err := svc.Login(context.Background(), "auth-code")
	if err != nil {
		t.Fatal(err)
	}
	if identity != "user@example.com" {
		t.Errorf("got identity %q, want %q", identity, "user@example.com")
	}
	if len(token) != SessionTokenLength {
		t.Errorf("got token length %d, want %d", len(token), SessionTokenLength)
	}

	resolved, err := svc.Resolve(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "user@example.com" {
		t.Errorf("resolved %q, want %q", resolved, "user@example.com")
	}
}

func TestLogin_ExchangeFailure(t *testing.T) {
	srv := tokenEndpoint(t, http.StatusBadRequest, "")
	defer srv.Close()

	store := newFakeSessionStore()
	svc := newExchangeService(t, store, srv.URL+"/token")

	_, _, err := svc.Login(context.Background(), "bad-code")
	if !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("got %v, want ErrExchangeFailed", err)
	}
	if len(store.sessions) != 0 {
		t.Error("partial session minted on failed exchange")
	}
}

func TestLogin_MissingIDToken(t *testing.T) {
	srv := tokenEndpoint(t, http.StatusOK, "")
	defer srv.Close()

	svc := newExchangeService(t, newFakeSessionStore(), srv.URL+"/token")

	if _, _, err := svc.Login(context.Background(), "auth-code"); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("got %v, want ErrExchangeFailed", err)
	}
}

func TestLogin_MissingEmailClaim(t *testing.T) {
	idToken := signedIDToken(t, jwt.MapClaims{"sub": "123"})
	srv := tokenEndpoint(t, http.StatusOK, idToken)
	defer srv.Close()

	svc := newExchangeService(t, newFakeSessionStore(), srv.URL+"/token")

	if _, _, err := svc.Login(context.Background(), "auth-code"); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("got %v, want ErrExchangeFailed", err)
	}
}

func TestLogin_EmptyCode(t *testing.T) {
	svc := NewService(newFakeSessionStore(), OAuthConfig{}, time.Hour, nil)

	if _, _, err := svc.Login(context.Background(), ""); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("got %v, want ErrExchangeFailed", err)
	}
}

func TestResolveAndDestroy(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewService(store, OAuthConfig{}, time.Hour, nil)

	token, err := svc.MintSession(context.Background(), "user@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Resolve(context.Background(), token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(context.Background(), ""); !errors.Is(err, ErrNoSession) {
		t.Errorf("blank token: got %v, want ErrNoSession", err)
	}

	if err := svc.Destroy(context.Background(), token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(context.Background(), token); !errors.Is(err, ErrNoSession) {
		t.Errorf("after destroy: got %v, want ErrNoSession", err)
	}

	// Destroying an absent session is a no-op.
	if err := svc.Destroy(context.Background(), token); err != nil {
		t.Errorf("double destroy: %v", err)
	}
}

func TestMintSession_Distinct(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewService(store, OAuthConfig{}, time.Hour, nil)

	seen := make(map[string]struct{})
	for range 50 {
		token, err := svc.MintSession(context.Background(), "u")
		if err != nil {
			t.Fatal(err)
		}
		if _, dup := seen[token]; dup {
			t.Fatal("duplicate session token minted")
		}
		seen[token] = struct{}{}
	}
}
