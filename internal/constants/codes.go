package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeRateLimited    = "RATE_LIMITED"

	// Shortener-specific codes
	CodeInvalidURL        = "INVALID_URL"
	CodeInvalidCustomKey  = "INVALID_CUSTOM_KEY"
	CodeCustomKeyTaken    = "CUSTOM_KEY_TAKEN"
	CodeLinkNotFound      = "LINK_NOT_FOUND"
	CodeKeyspaceExhausted = "KEYSPACE_EXHAUSTED"
)
