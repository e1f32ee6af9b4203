package upstream

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorIs(t *testing.T) {
	tests := []struct {
		status int
		target error
		want   bool
	}{
		{http.StatusTooManyRequests, ErrRateLimited, true},
		{http.StatusNotFound, ErrResourceNotFound, true},
		{http.StatusBadRequest, ErrInvalidRequest, true},
		{http.StatusUnprocessableEntity, ErrInvalidRequest, true},
		{http.StatusBadGateway, ErrServiceUnavailable, true},
		{http.StatusNotFound, ErrServiceUnavailable, false},
	}

	for _, tt := range tests {
		err := NewAPIError(http.MethodGet, "/order/1", tt.status, nil)
		assert.Equal(t, tt.want, errors.Is(err, tt.target), "status %d vs %v", tt.status, tt.target)
	}
}

func TestAPIErrorIsRetryable(t *testing.T) {
	assert.True(t, NewAPIError("GET", "/", http.StatusTooManyRequests, nil).IsRetryable())
	assert.True(t, NewAPIError("GET", "/", http.StatusInternalServerError, nil).IsRetryable())
	assert.False(t, NewAPIError("GET", "/", http.StatusNotFound, nil).IsRetryable())
	assert.False(t, NewAPIError("GET", "/", http.StatusConflict, nil).IsRetryable())
}

func TestAPIErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string detail", body: `{"detail":"  Window closed  "}`, want: "Window closed"},
		{name: "structured detail", body: `{"detail":[{"loc":["body"]}]}`, want: ""},
		{name: "no detail", body: `{"error":"x"}`, want: ""},
		{name: "plain text", body: `Service down`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError("POST", "/order/1/initiate-return", http.StatusConflict, []byte(tt.body))
			assert.Equal(t, tt.want, err.Detail())
		})
	}
}

func TestNewAPIErrorTruncatesBody(t *testing.T) {
	err := NewAPIError("GET", "/", http.StatusInternalServerError, []byte(strings.Repeat("x", MaxBodyLen+100)))
	assert.Equal(t, MaxBodyLen+3, len(err.Body))
	assert.True(t, strings.HasSuffix(err.Body, "..."))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "日本...", Truncate("日本語", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}
