package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rajibhasenraju/modern-url-shortener/internal/config"
	"github.com/rajibhasenraju/modern-url-shortener/internal/kv/memory"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/auth"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/links"
	"github.com/rajibhasenraju/modern-url-shortener/internal/storage/kvstore"
	"github.com/rajibhasenraju/modern-url-shortener/internal/transport/http/middleware"
)

type testEnv struct {
	handler    http.Handler
	linksStore *kvstore.LinksStore
	authSvc    *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Name = "url-shortener-test"
	cfg.Shortener.BaseURL = "http://short.test"
	cfg.Shortener.KeyLength = 6
	cfg.Shortener.RedirectStatus = http.StatusFound
	cfg.Auth.AppURL = "http://app.test"

	backend := memory.New()
	linksStore := kvstore.NewLinksStore(backend)
	clicksStore := kvstore.NewClicksStore(backend)
	sessionsStore := kvstore.NewSessionsStore(backend)

	linkSvc := links.NewService(linksStore, clicksStore, nil, links.NewCryptoKeyGenerator(), cfg.Shortener.KeyLength)
	authSvc := auth.NewService(sessionsStore, auth.OAuthConfig{}, time.Hour, nil)

	handler := NewRouterWithOptions(cfg, linkSvc, authSvc, RouterOptions{
		LinksHandlerOptions: LinksHandlerOptions{
			AsyncClick:   false,
			ClickTimeout: time.Second,
		},
	})

	return &testEnv{handler: handler, linksStore: linksStore, authSvc: authSvc}
}

func (e *testEnv) sessionCookie(t *testing.T, identity string) *http.Cookie {
	t.Helper()
	token, err := e.authSvc.MintSession(context.Background(), identity)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: middleware.SessionCookieName, Value: token}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createLink(t *testing.T, cookie *http.Cookie, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(body))
	req.AddCookie(cookie)
	rec := e.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateRedirectList(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user@example.com")

	resp := env.createLink(t, cookie, `{"url":"https://example.com/docs?page=2"}`)
	if resp["success"] != true {
		t.Fatalf("create response: %+v", resp)
	}
	shortKey, _ := resp["shortKey"].(string)
	if len(shortKey) != 6 {
		t.Fatalf("unexpected short key %q", shortKey)
	}
	if resp["shortUrl"] != "http://short.test/"+shortKey {
		t.Errorf("unexpected short url %v", resp["shortUrl"])
	}

	// Redirect is public and counts a view.
	rec := env.do(httptest.NewRequest(http.MethodGet, "/"+shortKey, nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("redirect returned %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://example.com/docs?page=2" {
		t.Errorf("redirect location %q", got)
	}

	// The owner sees the link with the recorded view.
	listReq := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	listReq.AddCookie(cookie)
	listRec := env.do(listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list returned %d", listRec.Code)
	}
	var listed []links.LinkRecord
	if err := json.NewDecoder(listRec.Body).Decode(&listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].Code != shortKey || listed[0].Views != 1 {
		t.Errorf("unexpected listing: %+v", listed)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user@example.com")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing url", `{}`, http.StatusBadRequest, "INVALID_URL"},
		{"ftp scheme", `{"url":"ftp://example.com/file"}`, http.StatusBadRequest, "INVALID_URL"},
		{"no host", `{"url":"https://"}`, http.StatusBadRequest, "INVALID_URL"},
		{"custom key too short", `{"url":"https://example.com","customKey":"ab"}`, http.StatusBadRequest, "INVALID_CUSTOM_KEY"},
		{"custom key bad chars", `{"url":"https://example.com","customKey":"has space"}`, http.StatusBadRequest, "INVALID_CUSTOM_KEY"},
		{"expiry out of range", `{"url":"https://example.com","expiryDays":0}`, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(tt.body))
			req.AddCookie(cookie)
			rec := env.do(req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Success || body.Error != tt.wantCode {
				t.Errorf("got error %q, want %q", body.Error, tt.wantCode)
			}
		})
	}
}

func TestCustomKeyConflict(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user@example.com")

	env.createLink(t, cookie, `{"url":"https://first.example.com","customKey":"promo"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(`{"url":"https://second.example.com","customKey":"promo"}`))
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("got %d, want 409", rec.Code)
	}

	// First mapping still wins.
	redirect := env.do(httptest.NewRequest(http.MethodGet, "/promo", nil))
	if got := redirect.Header().Get("Location"); got != "https://first.example.com" {
		t.Errorf("conflicting create overwrote mapping: %q", got)
	}
}

func TestManagementRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	requests := []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(`{"url":"https://example.com"}`)),
		httptest.NewRequest(http.MethodGet, "/api/links", nil),
		httptest.NewRequest(http.MethodDelete, "/api/links/abc234", nil),
		httptest.NewRequest(http.MethodGet, "/api/links/abc234/analytics", nil),
		httptest.NewRequest(http.MethodGet, "/api/me", nil),
	}
	for _, req := range requests {
		rec := env.do(req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s returned %d, want 401", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestRedirectErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/nosuch1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown code returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Link not found") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}

	// A lapsed link answers 410 once, then 404 after the tombstone pass.
	past := time.Now().UTC().Add(-time.Hour)
	err := env.linksStore.Create(context.Background(), &links.LinkRecord{
		Code:      "oldone",
		URL:       "https://stale.example.com",
		Owner:     "user@example.com",
		CreatedAt: past.Add(-24 * time.Hour),
		ExpiresAt: &past,
	})
	if err != nil {
		t.Fatal(err)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/oldone", nil))
	if rec.Code != http.StatusGone {
		t.Fatalf("expired link returned %d, want 410", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Link expired") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/oldone", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("tombstoned link returned %d, want 404", rec.Code)
	}
}

func TestDeleteOwnLink(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "owner@example.com")

	env.createLink(t, cookie, `{"url":"https://example.com","customKey":"mine12"}`)

	req := httptest.NewRequest(http.MethodDelete, "/api/links/mine12", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d: %s", rec.Code, rec.Body.String())
	}

	if redirect := env.do(httptest.NewRequest(http.MethodGet, "/mine12", nil)); redirect.Code != http.StatusNotFound {
		t.Errorf("deleted link still resolves: %d", redirect.Code)
	}
}

func TestDeleteForeignLink(t *testing.T) {
	env := newTestEnv(t)
	owner := env.sessionCookie(t, "owner@example.com")
	intruder := env.sessionCookie(t, "intruder@example.com")

	env.createLink(t, owner, `{"url":"https://example.com","customKey":"target"}`)

	req := httptest.NewRequest(http.MethodDelete, "/api/links/target", nil)
	req.AddCookie(intruder)
	rec := env.do(req)
	// Foreign links are indistinguishable from missing ones.
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete returned %d, want 404", rec.Code)
	}

	if redirect := env.do(httptest.NewRequest(http.MethodGet, "/target", nil)); redirect.Code != http.StatusFound {
		t.Errorf("foreign delete removed the link: %d", redirect.Code)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user@example.com")

	env.createLink(t, cookie, `{"url":"https://example.com","customKey":"traced"}`)

	click := func(ua, country string) {
		req := httptest.NewRequest(http.MethodGet, "/traced", nil)
		if ua != "" {
			req.Header.Set("User-Agent", ua)
		}
		if country != "" {
			req.Header.Set("CF-IPCountry", country)
		}
		if rec := env.do(req); rec.Code != http.StatusFound {
			t.Fatalf("redirect returned %d", rec.Code)
		}
	}
	click("Mozilla/5.0 (iPhone) Mobile Safari/604.1", "NO")
	click("Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36", "BR")

	req := httptest.NewRequest(http.MethodGet, "/api/links/traced/analytics", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics returned %d: %s", rec.Code, rec.Body.String())
	}

	var analytics links.Analytics
	if err := json.NewDecoder(rec.Body).Decode(&analytics); err != nil {
		t.Fatal(err)
	}
	if analytics.TotalClicks != 2 {
		t.Errorf("totalClicks = %d, want 2", analytics.TotalClicks)
	}
	if analytics.UniqueClicks != 2 {
		t.Errorf("uniqueClicks = %d, want 2", analytics.UniqueClicks)
	}
	if len(analytics.ClicksByCountry) != 2 {
		t.Errorf("clicksByCountry = %+v", analytics.ClicksByCountry)
	}

	// Unknown codes aggregate to zero instead of failing.
	req = httptest.NewRequest(http.MethodGet, "/api/analytics/nosuch1", nil)
	req.AddCookie(cookie)
	rec = env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics for unknown code returned %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&analytics); err != nil {
		t.Fatal(err)
	}
	if analytics.TotalClicks != 0 {
		t.Errorf("totalClicks for unknown code = %d", analytics.TotalClicks)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "fresh@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty listing rendered as %q, want []", body)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout returned %d", rec.Code)
	}

	// The old token no longer works.
	meReq := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	meReq.AddCookie(cookie)
	if meRec := env.do(meReq); meRec.Code != http.StatusUnauthorized {
		t.Errorf("session survived logout: %d", meRec.Code)
	}
}

func TestMeReturnsIdentity(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "who@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me returned %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["email"] != "who@example.com" {
		t.Errorf("me returned %+v", body)
	}
}
