package middleware

import (
	"context"
	"net/http"

	"github.com/rajibhasenraju/modern-url-shortener/internal/constants"
	"github.com/rajibhasenraju/modern-url-shortener/pkg/httputils"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session"

// SessionResolver resolves a session token to the identity it was minted for.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

type contextKey string

const userContextKey contextKey = "user"

// SessionMiddleware rejects requests without a valid session cookie and puts
// the resolved identity on the request context.
func SessionMiddleware(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}

			identity, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the identity placed on the context by
// SessionMiddleware, or "" when the request was not authenticated.
func UserFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(userContextKey).(string)
	return identity
}
