package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rajibhasenraju/modern-url-shortener/internal/config"
	"github.com/rajibhasenraju/modern-url-shortener/internal/constants"
	"github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/logger"
	appvalidation "github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/validation"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/links"
	"github.com/rajibhasenraju/modern-url-shortener/internal/transport/http/middleware"
	"github.com/rajibhasenraju/modern-url-shortener/pkg/httputils"
)

type LinksHandler struct {
	cfg *config.Config
	svc *links.Service

	asyncClick   bool
	clickTimeout time.Duration
}

type LinksHandlerOptions struct {
	AsyncClick   bool
	ClickTimeout time.Duration
}

func NewLinksHandler(cfg *config.Config, svc *links.Service) *LinksHandler {
	return NewLinksHandlerWithOptions(cfg, svc, LinksHandlerOptions{
		AsyncClick:   true,
		ClickTimeout: 2 * time.Second,
	})
}

func NewLinksHandlerWithOptions(cfg *config.Config, svc *links.Service, opts LinksHandlerOptions) *LinksHandler {
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = 2 * time.Second
	}

	return &LinksHandler{
		cfg:          cfg,
		svc:          svc,
		asyncClick:   opts.AsyncClick,
		clickTimeout: opts.ClickTimeout,
	}
}

type createLinkRequest struct {
	URL        string   `json:"url" validate:"required,notblank,http_url"`
	CustomKey  string   `json:"customKey,omitempty" validate:"omitempty,short_key"`
	ExpiryDays int      `json:"expiryDays,omitempty" validate:"omitempty,gte=1,lte=3650"`
	Password   string   `json:"password,omitempty"`
	Tags       []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,notblank,max=32"`
}

type createLinkResponse struct {
	Success  bool   `json:"success"`
	ShortKey string `json:"shortKey"`
	ShortURL string `json:"shortUrl"`
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		apiErr := constants.ErrInvalidRequestBody
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, e := range validationErrs {
				if e.Field() == "url" {
					apiErr = constants.ErrInvalidURL
					break
				}
				if e.Field() == "customKey" {
					apiErr = constants.ErrInvalidCustomKey
					break
				}
				if e.Field() == "expiryDays" {
					apiErr = apiErr.WithMessage("expiryDays must be between 1 and 3650")
					break
				}
			}
		}
		httputils.WriteAPIError(w, r, apiErr)
		return
	}

	link, err := h.svc.Create(r.Context(), links.CreateLinkInput{
		URL:        req.URL,
		CustomKey:  req.CustomKey,
		ExpiryDays: req.ExpiryDays,
		Password:   req.Password,
		Tags:       req.Tags,
		Owner:      middleware.UserFromContext(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, links.ErrInvalidURL):
			httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
		case errors.Is(err, links.ErrInvalidKey):
			httputils.WriteAPIError(w, r, constants.ErrInvalidCustomKey)
		case errors.Is(err, links.ErrKeyTaken):
			httputils.WriteAPIError(w, r, constants.ErrCustomKeyTaken)
		case errors.Is(err, links.ErrKeyspaceExhausted):
			httputils.WriteAPIError(w, r, constants.ErrKeyspaceExhausted)
		default:
			logger.Error("failed to create link", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	httputils.RespondJSON(w, r, http.StatusOK, createLinkResponse{
		Success:  true,
		ShortKey: link.Code,
		ShortURL: strings.TrimRight(h.cfg.Shortener.BaseURL, "/") + "/" + link.Code,
	})
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserFromContext(r.Context())

	records, err := h.svc.List(r.Context(), owner)
	if err != nil {
		logger.Error("failed to list links", zap.Error(err), zap.String("owner", owner))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	// An owner with no links gets [], never null.
	if records == nil {
		records = []links.LinkRecord{}
	}
	httputils.RespondJSON(w, r, http.StatusOK, records)
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserFromContext(r.Context())
	code := r.PathValue("code")

	if err := h.svc.Delete(r.Context(), owner, code); err != nil {
		switch {
		case errors.Is(err, links.ErrNotFound):
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		default:
			logger.Error("failed to delete link", zap.Error(err), zap.String("code", code))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	httputils.RespondJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *LinksHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	analytics, err := h.svc.Aggregate(r.Context(), code)
	if err != nil {
		logger.Error("failed to aggregate clicks", zap.Error(err), zap.String("code", code))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	httputils.RespondJSON(w, r, http.StatusOK, analytics)
}

func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.svc.Resolve(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, links.ErrNotFound):
			http.Error(w, "Link not found", http.StatusNotFound)
		case errors.Is(err, links.ErrExpired):
			http.Error(w, "Link expired", http.StatusGone)
		default:
			logger.Error("failed to resolve code", zap.Error(err), zap.String("code", code))
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
		return
	}

	event := clickEventFromRequest(r)
	if h.asyncClick {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), h.clickTimeout)
			defer cancel()
			if err := h.svc.RecordClick(ctx, code, event); err != nil {
				logger.Warn("failed to record click", zap.Error(err), zap.String("code", code))
			}
		}()
	} else {
		_ = h.svc.RecordClick(r.Context(), code, event)
	}

	http.Redirect(w, r, link.URL, h.cfg.Shortener.RedirectStatus)
}

// clickEventFromRequest derives the analytics dimensions from request
// headers. The country comes from the CDN edge when present.
func clickEventFromRequest(r *http.Request) links.ClickEvent {
	return links.ClickEvent{
		Timestamp: time.Now().UTC(),
		Country:   r.Header.Get("CF-IPCountry"),
		Device:    deviceFromUserAgent(r.UserAgent()),
		Browser:   browserFromUserAgent(r.UserAgent()),
		Referrer:  r.Referer(),
	}
}

func deviceFromUserAgent(ua string) string {
	if ua == "" {
		return ""
	}
	if strings.Contains(ua, "Mobile") {
		return "Mobile"
	}
	return "Desktop"
}

func browserFromUserAgent(ua string) string {
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "Edg/"):
		return "Edge"
	case strings.Contains(ua, "OPR/"):
		return "Opera"
	case strings.Contains(ua, "Chrome/"):
		return "Chrome"
	case strings.Contains(ua, "Firefox/"):
		return "Firefox"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	default:
		return "Other"
	}
}
