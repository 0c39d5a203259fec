package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"go.uber.org/zap"

	"github.com/rajibhasenraju/modern-url-shortener/internal/config"
	"github.com/rajibhasenraju/modern-url-shortener/internal/constants"
	"github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/logger"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/auth"
	"github.com/rajibhasenraju/modern-url-shortener/internal/transport/http/middleware"
	"github.com/rajibhasenraju/modern-url-shortener/pkg/httputils"
)

const stateCookieName = "oauth_state"

type AuthHandler struct {
	cfg *config.Config
	svc *auth.Service
}

func NewAuthHandler(cfg *config.Config, svc *auth.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, svc: svc}
}

// Login starts the OAuth flow: mints a state nonce, stores it in a short
// lived cookie and redirects to the provider's consent page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := randomState()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cfg.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.svc.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the OAuth flow. On success it sets the session cookie
// and sends the user back to the app; on failure it redirects to the app's
// login page with an error marker.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	// The state cookie may be absent when cookies are blocked; validate
	// only when it made the round trip.
	if stateCookie, err := r.Cookie(stateCookieName); err == nil {
		if stateCookie.Value != r.URL.Query().Get("state") {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
	}
	clearCookie(w, stateCookieName, h.cfg.Auth.SecureCookies)

	identity, token, err := h.svc.Login(r.Context(), code)
	if err != nil {
		logger.Error("oauth login failed", zap.Error(err))
		http.Redirect(w, r, h.cfg.Auth.AppURL+"/login?error=auth_failed", http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.svc.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	logger.Info("user logged in", zap.String("user", identity))
	http.Redirect(w, r, h.cfg.Auth.AppURL, http.StatusFound)
}

// Logout destroys the session server-side and expires the cookie, then
// redirects back to the app.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.destroySession(w, r)
	http.Redirect(w, r, h.cfg.Auth.AppURL, http.StatusFound)
}

// LogoutAPI is the JSON variant of Logout for fetch-based clients.
func (h *AuthHandler) LogoutAPI(w http.ResponseWriter, r *http.Request) {
	h.destroySession(w, r)
	httputils.RespondJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the identity bound to the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == "" {
		httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
		return
	}
	httputils.RespondJSON(w, r, http.StatusOK, map[string]string{"email": user})
}

func (h *AuthHandler) destroySession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.svc.Destroy(r.Context(), cookie.Value); err != nil {
			logger.Warn("failed to destroy session", zap.Error(err))
		}
	}
	clearCookie(w, middleware.SessionCookieName, h.cfg.Auth.SecureCookies)
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomState() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
