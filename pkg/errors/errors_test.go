package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus_Unauthorized(t *testing.T) {
	err := FromStatus(http.StatusUnauthorized, "token invalid")

	assert.Equal(t, CodeUnauthorized, err.Code)
	assert.Equal(t, http.StatusUnauthorized, err.HTTPStatus)
	// 401 always uses the table message, never server text.
	assert.Equal(t, "session expired, please sign in again", err.Message)
	assert.True(t, IsUnauthorized(err))
}

func TestFromStatus_StatusTable(t *testing.T) {
	cases := []struct {
		status  int
		code    string
		message string
	}{
		{http.StatusBadRequest, "HTTP_400", "invalid request"},
		{http.StatusForbidden, "HTTP_403", "you do not have access to this resource"},
		{http.StatusNotFound, "HTTP_404", "the requested resource was not found"},
		{http.StatusRequestTimeout, "HTTP_408", "the server took too long to respond"},
		{http.StatusTooManyRequests, "HTTP_429", "too many requests, slow down"},
		{http.StatusInternalServerError, "HTTP_500", "something went wrong on our side"},
		{http.StatusBadGateway, "HTTP_502", "service temporarily unavailable"},
		{http.StatusServiceUnavailable, "HTTP_503", "service temporarily unavailable"},
		{http.StatusGatewayTimeout, "HTTP_504", "service temporarily unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			err := FromStatus(tc.status, "")
			assert.Equal(t, tc.code, err.Code)
			assert.Equal(t, tc.message, err.Message)
		})
	}
}

func TestFromStatus_ValidationDetailPreferred(t *testing.T) {
	err := FromStatus(http.StatusUnprocessableEntity, "email must be a valid address")
	assert.Equal(t, "email must be a valid address", err.Message)
}

func TestFromStatus_LongDetailFallsBack(t *testing.T) {
	long := strings.Repeat("x", 200)
	err := FromStatus(http.StatusBadRequest, long)
	assert.Equal(t, "invalid request", err.Message)

	multiline := "first line\nsecond line"
	err = FromStatus(http.StatusBadRequest, multiline)
	assert.Equal(t, "invalid request", err.Message)
}

func TestFromStatus_UnmappedStatus(t *testing.T) {
	err := FromStatus(http.StatusTeapot, "")
	assert.Equal(t, "HTTP_418", err.Code)
	assert.Equal(t, "an unexpected error occurred", err.Message)
}

func TestNewNetworkError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewNetworkError(cause)

	assert.Equal(t, CodeNetwork, err.Code)
	assert.Equal(t, NetworkErrorMessage, err.Message)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, cause)
}

func TestAsAPIError_Wrapped(t *testing.T) {
	inner := FromStatus(http.StatusNotFound, "")
	wrapped := fmt.Errorf("fetching company: %w", inner)

	got := AsAPIError(wrapped)
	assert.NotNil(t, got)
	assert.Equal(t, "HTTP_404", got.Code)
}

func TestUserMessage_UnclassifiedError(t *testing.T) {
	assert.Equal(t, "an unexpected error occurred", UserMessage(errors.New("boom")))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("boom")))
}
