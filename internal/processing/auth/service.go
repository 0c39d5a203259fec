// Package auth turns OAuth authorization codes into stable user identities
// and manages the opaque-token session layer in front of them.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// SessionTokenLength matches the original dashboard's opaque tokens.
	SessionTokenLength = 32
	DefaultSessionTTL  = 30 * 24 * time.Hour
)

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Service struct {
	sessions SessionStore
	oauth    *oauth2.Config
	ttl      time.Duration
	// httpClient, when set, carries the circuit-breaker transport used for
	// the token endpoint round-trip.
	httpClient *http.Client
}

func NewService(sessions SessionStore, cfg OAuthConfig, ttl time.Duration, httpClient *http.Client) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &Service{
		sessions: sessions,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		ttl:        ttl,
		httpClient: httpClient,
	}
}

// SessionTTL is the lifetime applied to newly minted sessions.
func (s *Service) SessionTTL() time.Duration { return s.ttl }

// AuthCodeURL builds the provider consent URL for the given CSRF state.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Login performs the full exchange: authorization code → identity → minted
// session. Any failure along the way returns ErrExchangeFailed and leaves
// no session behind.
func (s *Service) Login(ctx context.Context, code string) (identity, token string, err error) {
	identity, err = s.exchangeCode(ctx, code)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	token, err = s.MintSession(ctx, identity)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	return identity, token, nil
}

// exchangeCode trades the authorization code for tokens at the provider and
// extracts the verified email from the id_token claims. The id_token arrives
// directly from the provider over TLS, so its payload is decoded without a
// further signature-key round-trip.
func (s *Service) exchangeCode(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("empty authorization code")
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return "", fmt.Errorf("token response missing id_token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, claims); err != nil {
		return "", fmt.Errorf("decode id_token: %w", err)
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("id_token missing email claim")
	}

	return email, nil
}

// MintSession stores token → identity with the configured TTL and returns
// the token for the caller to set as a cookie.
func (s *Service) MintSession(ctx context.Context, identity string) (string, error) {
	token, err := randomToken(SessionTokenLength)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Put(ctx, token, identity, s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the identity behind a session token, or ErrNoSession.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrNoSession
	}
	return s.sessions.Get(ctx, token)
}

// Destroy removes a session. Destroying an absent session is not an error.
func (s *Service) Destroy(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

func randomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := range buf {
		out[i] = tokenAlphabet[int(buf[i])%len(tokenAlphabet)]
	}
	return string(out), nil
}
