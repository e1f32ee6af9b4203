package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/domain/upstream"
	"github.com/sendback/service-dashboard/internal/services"
)

func TestStatusFor(t *testing.T) {
	notFound := upstream.NewAPIError(http.MethodGet, "/policy", http.StatusNotFound, []byte(`{"detail":"unknown merchant"}`))

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"order not found", returns.ErrNotFound, http.StatusNotFound},
		{"flow not found", services.ErrFlowNotFound, http.StatusNotFound},
		{"upstream 404", notFound, http.StatusNotFound},
		{"wrapped upstream 404", fmt.Errorf("get policy: %w", notFound), http.StatusNotFound},
		{"guard", returns.GuardError("no items selected"), http.StatusConflict},
		{"in flight", returns.ErrSubmissionInFlight, http.StatusConflict},
		{"submission rejected with 404", &returns.SubmissionError{StatusCode: http.StatusNotFound, Message: "gone", Err: notFound}, http.StatusUnprocessableEntity},
		{"upstream 500", upstream.NewAPIError(http.MethodGet, "/policy", http.StatusInternalServerError, nil), http.StatusBadGateway},
		{"transport", errors.New("connection refused"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
