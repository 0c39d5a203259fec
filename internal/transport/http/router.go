package http

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rajibhasenraju/modern-url-shortener/internal/config"
	"github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/telemetry"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/auth"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/links"
	"github.com/rajibhasenraju/modern-url-shortener/internal/transport/http/middleware"
)

var spanNames = map[string]string{
	"GET /health":                     "health",
	"GET /metrics":                    "metrics",
	"GET /auth/login":                 "auth.login",
	"GET /auth/callback":              "auth.callback",
	"GET /logout":                     "auth.logout",
	"POST /logout":                    "auth.logout",
	"POST /api/logout":                "auth.logout",
	"GET /api/me":                     "auth.me",
	"POST /api/shorten":               "links.create",
	"POST /api/links":                 "links.create",
	"GET /api/links":                  "links.list",
	"DELETE /api/links/{code}":        "links.delete",
	"GET /api/links/{code}/analytics": "links.analytics",
	"GET /api/analytics/{code}":       "links.analytics",
	"GET /{code}":                     "links.redirect",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool

	// RateLimiter throttles link creation; nil disables throttling.
	RateLimiter *middleware.FixedWindowLimiter

	LinksHandlerOptions LinksHandlerOptions
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
		LinksHandlerOptions: LinksHandlerOptions{
			AsyncClick:   true,
			ClickTimeout: 2 * time.Second,
		},
	}
}

func NewRouter(cfg *config.Config, linkService *links.Service, authService *auth.Service) http.Handler {
	return NewRouterWithOptions(cfg, linkService, authService, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, linkService *links.Service, authService *auth.Service, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler()
	linksHandler := NewLinksHandlerWithOptions(cfg, linkService, opts.LinksHandlerOptions)
	authHandler := NewAuthHandler(cfg, authService)

	requireSession := middleware.SessionMiddleware(authService)
	rateLimit := middleware.RateLimitMiddleware(opts.RateLimiter)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	mux.HandleFunc("GET /auth/login", authHandler.Login)
	mux.HandleFunc("GET /auth/callback", authHandler.Callback)
	mux.HandleFunc("GET /logout", authHandler.Logout)
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.Handle("POST /api/logout", requireSession(http.HandlerFunc(authHandler.LogoutAPI)))
	mux.Handle("GET /api/me", requireSession(http.HandlerFunc(authHandler.Me)))

	createHandler := middleware.Chain(
		http.HandlerFunc(linksHandler.Create),
		requireSession,
		rateLimit,
	)
	mux.Handle("POST /api/shorten", createHandler)
	mux.Handle("POST /api/links", createHandler)

	mux.Handle("GET /api/links", requireSession(http.HandlerFunc(linksHandler.List)))
	mux.Handle("DELETE /api/links/{code}", requireSession(http.HandlerFunc(linksHandler.Delete)))
	mux.Handle("GET /api/links/{code}/analytics", requireSession(http.HandlerFunc(linksHandler.Analytics)))
	mux.Handle("GET /api/analytics/{code}", requireSession(http.HandlerFunc(linksHandler.Analytics)))

	mux.HandleFunc("GET /{code}", linksHandler.Redirect)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, cfg.Auth.AppURL, http.StatusFound)
	})

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware([]string{cfg.Auth.AppURL})(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
