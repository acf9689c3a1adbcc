package domain

import "errors"

var ErrNotFound = errors.New("not found")

type ErrorKind string

const (
	ErrorKindMissingKey       ErrorKind = "missing_key"
	ErrorKindInvalidKey       ErrorKind = "invalid_key"
	ErrorKindQuotaExhausted   ErrorKind = "quota_exhausted"
	ErrorKindPermissionDenied ErrorKind = "permission_denied"
	ErrorKindUnknown          ErrorKind = "unknown"
)

// APIError is the classified form of a generative API failure. Classification
// happens once, at the transport boundary; downstream code switches on Kind
// and never re-parses Message.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func ErrorKindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrorKindUnknown
}

// IsKeyActionable reports whether switching to another API key is a
// meaningful remedy for the error.
func IsKeyActionable(err error) bool {
	switch ErrorKindOf(err) {
	case ErrorKindMissingKey, ErrorKindInvalidKey, ErrorKindQuotaExhausted:
		return true
	}
	return false
}
