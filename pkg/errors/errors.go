package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes understood by the stores and the UI layers on top of them.
// Every HTTP error status not listed here is reported as "HTTP_<status>".
const (
	CodeNetwork      = "NETWORK_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeUnknown      = "UNKNOWN"
)

// NetworkErrorMessage is the stable user-facing text for transport
// failures, kept distinct from any server-provided error text.
const NetworkErrorMessage = "network error, check your connection"

// statusMessages maps error statuses to fixed user-facing strings. Server
// detail text is preferred for validation statuses when it is short enough
// to show verbatim; everything else falls back to this table.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "invalid request",
	http.StatusUnauthorized:        "session expired, please sign in again",
	http.StatusForbidden:           "you do not have access to this resource",
	http.StatusNotFound:            "the requested resource was not found",
	http.StatusRequestTimeout:      "the server took too long to respond",
	http.StatusUnprocessableEntity: "invalid request",
	http.StatusTooManyRequests:     "too many requests, slow down",
	http.StatusInternalServerError: "something went wrong on our side",
	http.StatusBadGateway:          "service temporarily unavailable",
	http.StatusServiceUnavailable:  "service temporarily unavailable",
	http.StatusGatewayTimeout:      "service temporarily unavailable",
}

const genericMessage = "an unexpected error occurred"

// detailStatuses are the statuses whose server-provided detail text is safe
// to surface verbatim when short.
var detailStatuses = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnprocessableEntity: true,
}

// maxDetailLength bounds verbatim server detail shown to a user.
const maxDetailLength = 140

// APIError is the error type returned by every API-facing operation.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Detail     string `json:"detail,omitempty"`
	Cause      error  `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// FromStatus builds an APIError for an HTTP error status. detail is the
// text extracted from the server's error envelope, empty when absent.
func FromStatus(status int, detail string) *APIError {
	e := &APIError{
		Code:       HTTPCode(status),
		HTTPStatus: status,
		Detail:     detail,
	}
	if status == http.StatusUnauthorized {
		e.Code = CodeUnauthorized
	}
	e.Message = messageFor(status, detail)
	return e
}

// NewNetworkError classifies a transport failure: the request never
// produced an HTTP response.
func NewNetworkError(err error) *APIError {
	return &APIError{
		Code:    CodeNetwork,
		Message: NetworkErrorMessage,
		Cause:   err,
	}
}

// NewUnknownError covers everything that is neither a transport failure
// nor an HTTP error status, such as a malformed response body.
func NewUnknownError(message string, err error) *APIError {
	if message == "" {
		message = genericMessage
	}
	return &APIError{
		Code:    CodeUnknown,
		Message: message,
		Cause:   err,
	}
}

// HTTPCode renders the machine code for an HTTP error status.
func HTTPCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}

// messageFor picks the user-facing message for a status, preferring server
// detail only for validation statuses and only when it reads like a short
// single-line sentence.
func messageFor(status int, detail string) string {
	if detailStatuses[status] && safeDetail(detail) {
		return detail
	}
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return genericMessage
}

func safeDetail(detail string) bool {
	if detail == "" || len(detail) > maxDetailLength {
		return false
	}
	return !strings.ContainsAny(detail, "\n\r")
}

// Helper functions

// AsAPIError extracts an APIError from an error chain.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsUnauthorized checks if an error carries the 401 specialization.
func IsUnauthorized(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.Code == CodeUnauthorized
}

// IsNetwork checks if an error is a transport failure.
func IsNetwork(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.Code == CodeNetwork
}

// UserMessage returns the text a UI should show for err. Unclassified
// errors collapse to the generic fallback rather than leaking internals.
func UserMessage(err error) string {
	if apiErr := AsAPIError(err); apiErr != nil {
		return apiErr.Message
	}
	return genericMessage
}

// CodeOf returns the machine code for err, or UNKNOWN for unclassified
// errors.
func CodeOf(err error) string {
	if apiErr := AsAPIError(err); apiErr != nil {
		return apiErr.Code
	}
	return CodeUnknown
}
