package services

import (
	"errors"
	"fmt"

	"github.com/devilmonastery/salesdesk/internal/client"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrMissingCode    = errors.New("missing code")
	ErrMissingState   = errors.New("missing state")
	ErrNoTokensIssued = errors.New("no tokens issued")
)

// ResponseError is a business failure the API reported inside a response
// envelope, possibly on a 2xx HTTP response.
type ResponseError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *ResponseError) Error() string {
	return e.Message
}

// IsResponseError checks if err is a business failure from the API.
func IsResponseError(err error) bool {
	var re *ResponseError
	return errors.As(err, &re)
}

// invalid wraps ErrInvalidInput with a caller-facing message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// checkEnvelope turns a non-2xx envelope status into a ResponseError.
func checkEnvelope[T any](resp *client.Response[T], fallback string) error {
	if resp.OK() {
		return nil
	}
	return &ResponseError{
		StatusCode: resp.Status.StatusCode,
		Message:    resp.Message(fallback),
		RequestID:  resp.RequestID,
	}
}

// FailureReason returns a short label for err, used for logging and
// error responses.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrMissingCode) || errors.Is(err, ErrMissingState) {
		return "invalid_input"
	}
	if IsResponseError(err) {
		return "rejected"
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		return string(apiErr.Kind())
	}
	return "internal"
}
