package constants

import "net/http"

// APIError is a structured error carrying the HTTP status and the wire
// code/message pair rendered in the JSON error body.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a different message,
// keeping the code and status.
func (e APIError) WithMessage(message string) APIError {
	e.Message = message
	return e
}

var (
	ErrInvalidRequestBody = APIError{Code: CodeInvalidRequest, Message: MsgInvalidRequestBody, Status: http.StatusBadRequest}
	ErrInternalError      = APIError{Code: CodeInternalError, Message: MsgInternalError, Status: http.StatusInternalServerError}
	ErrUnauthorized       = APIError{Code: CodeUnauthorized, Message: MsgUnauthorized, Status: http.StatusUnauthorized}
	ErrRateLimited        = APIError{Code: CodeRateLimited, Message: MsgRateLimited, Status: http.StatusTooManyRequests}

	ErrInvalidURL        = APIError{Code: CodeInvalidURL, Message: MsgInvalidURL, Status: http.StatusBadRequest}
	ErrInvalidCustomKey  = APIError{Code: CodeInvalidCustomKey, Message: MsgInvalidCustomKey, Status: http.StatusBadRequest}
	ErrCustomKeyTaken    = APIError{Code: CodeCustomKeyTaken, Message: MsgCustomKeyTaken, Status: http.StatusConflict}
	ErrLinkNotFound      = APIError{Code: CodeLinkNotFound, Message: MsgLinkNotFound, Status: http.StatusNotFound}
	ErrKeyspaceExhausted = APIError{Code: CodeKeyspaceExhausted, Message: MsgKeyspaceExhausted, Status: http.StatusServiceUnavailable}
)
