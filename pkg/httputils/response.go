package httputils

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajibhasenraju/modern-url-shortener/internal/constants"
	"github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/logger"
)

const CorrelationIDHeader = "X-Correlation-Id"

// ErrorResponse is the JSON body for every failed API request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// GetCorrelationID extracts the correlation ID from the request header.
// If not present, generates a new UUID v4.
func GetCorrelationID(r *http.Request) string {
	correlationID := r.Header.Get(CorrelationIDHeader)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return correlationID
}

// RespondJSON writes payload as-is with the given status, echoing the
// correlation ID back to the caller.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set(CorrelationIDHeader, GetCorrelationID(r))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode json response", zap.Error(err))
	}
}

// WriteAPIError writes a predefined APIError as the standard error body.
func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	RespondJSON(w, r, apiErr.Status, ErrorResponse{
		Success: false,
		Error:   apiErr.Code,
		Message: apiErr.Message,
	})
}
