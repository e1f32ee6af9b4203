// Package upstream provides error, retry and rate-limit types for calls to
// the order service.
package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard upstream errors.
var (
	ErrRateLimited        = errors.New("upstream rate limit exceeded")
	ErrResourceNotFound   = errors.New("upstream resource not found")
	ErrInvalidRequest     = errors.New("upstream rejected request")
	ErrServiceUnavailable = errors.New("order service temporarily unavailable")
)

// MaxBodyLen bounds the response body kept on an APIError.
const MaxBodyLen = 2048

// APIError is a non-2xx response from the order service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// NewAPIError creates an APIError, truncating the body to MaxBodyLen.
func NewAPIError(method, path string, statusCode int, body []byte) *APIError {
	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Body:       Truncate(string(body), MaxBodyLen),
	}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, Truncate(e.Body, 200))
	}
	return fmt.Sprintf("upstream %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Is implements errors.Is for APIError.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrResourceNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrInvalidRequest:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case ErrServiceUnavailable:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsRetryable returns true if this error is safe to retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusServiceUnavailable ||
		e.StatusCode >= 500
}

// Detail extracts the "detail" string of an error body, if any.
func (e *APIError) Detail() string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}

// Truncate cuts s to at most maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
