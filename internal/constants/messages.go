package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgRateLimited        = "Too many requests"

	// Shortener-specific messages
	MsgInvalidURL        = "Invalid URL (must be http or https)"
	MsgInvalidCustomKey  = "Custom key must be 3-20 characters of letters, digits, hyphen or underscore"
	MsgCustomKeyTaken    = "Custom key already taken"
	MsgLinkNotFound      = "Link not found"
	MsgKeyspaceExhausted = "Could not allocate a short key, try again"
)
