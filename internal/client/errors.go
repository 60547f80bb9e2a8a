package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ErrorKind classifies an APIError for callers deciding how to present it.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindTransient    ErrorKind = "transient"
	KindBusiness     ErrorKind = "business"
	KindUnknown      ErrorKind = "unknown"
)

const defaultErrorDetail = "An error occurred"

// APIError is the only error type returned by the pipeline.
type APIError struct {
	StatusCode int
	Detail     string
	Code       string
	Fields     map[string][]string
	Err        error

	shape errorShape
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Kind returns the error taxonomy bucket.
func (e *APIError) Kind() ErrorKind {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return KindUnauthorized
	case e.shape == shapeValidation || len(e.Fields) > 0 || e.StatusCode == http.StatusUnprocessableEntity:
		return KindValidation
	case isTransientStatus(e.StatusCode):
		return KindTransient
	case e.shape == shapeNone && e.StatusCode == http.StatusInternalServerError && e.Err != nil:
		return KindUnknown
	default:
		return KindBusiness
	}
}

// Retryable reports whether the status is one of the transient infra codes.
func (e *APIError) Retryable() bool {
	return isTransientStatus(e.StatusCode)
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is a 401 APIError.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

// errorShape tags which server error body variant was recognised.
type errorShape int

const (
	shapeNone errorShape = iota
	shapeValidation
	shapeDetail
	shapeLegacy
)

// errorBody is a decoded error response. Only the fields relevant to its
// shape are populated.
type errorBody struct {
	shape      errorShape
	statusCode int
	message    string
	code       string
	fields     map[string][]string
}

// decodeErrorBody recognises the three error body variants the API emits:
//
//	{"success": false, "statusCode": 422, "message": [...], "error": "...", "fields": {...}}
//	{"detail": "...", "code": "..."}
//	{"status": {"status_code": 400, "detail": "..." | {"detail": "..."}}}
func decodeErrorBody(data []byte) errorBody {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &obj); err != nil {
		return errorBody{}
	}

	if raw, ok := obj["success"]; ok && string(bytes.TrimSpace(raw)) == "false" {
		body := errorBody{
			shape:   shapeValidation,
			message: firstMessage(obj["message"]),
			code:    looseString(obj["error"]),
			fields:  decodeFields(obj["fields"]),
		}
		_ = json.Unmarshal(obj["statusCode"], &body.statusCode)
		return body
	}

	if raw, ok := obj["detail"]; ok {
		var detail string
		if err := json.Unmarshal(raw, &detail); err == nil {
			return errorBody{
				shape:   shapeDetail,
				message: detail,
				code:    looseString(obj["code"]),
			}
		}
	}

	if raw, ok := obj["status"]; ok {
		var status Status
		if err := json.Unmarshal(raw, &status); err == nil {
			return errorBody{
				shape:      shapeLegacy,
				statusCode: status.StatusCode,
				message:    string(status.Detail),
			}
		}
	}

	return errorBody{}
}

// toAPIError maps a decoded body onto an APIError for an HTTP response
// that carried httpStatus.
func (b errorBody) toAPIError(httpStatus int) *APIError {
	apiErr := &APIError{
		StatusCode: httpStatus,
		Detail:     b.message,
		Code:       b.code,
		Fields:     b.fields,
		shape:      b.shape,
	}
	switch b.shape {
	case shapeValidation, shapeLegacy:
		if b.statusCode != 0 {
			apiErr.StatusCode = b.statusCode
		}
	case shapeNone:
		// Only a recognised body may carry a status past the pipeline.
		apiErr.StatusCode = http.StatusInternalServerError
		apiErr.Detail = fmt.Sprintf("Request failed with status code %d", httpStatus)
	}
	if apiErr.Detail == "" {
		apiErr.Detail = defaultErrorDetail
	}
	return apiErr
}

// transformResponse normalizes a non-2xx HTTP response.
func transformResponse(httpStatus int, body []byte) *APIError {
	apiErr := decodeErrorBody(body).toAPIError(httpStatus)
	apiErr.Err = &HTTPStatusError{StatusCode: httpStatus, Body: truncate(body, 512)}
	return apiErr
}

// HTTPStatusError is the underlying cause recorded for non-2xx responses.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// transformTransportError maps a failure that produced no HTTP response.
func transformTransportError(err error) *APIError {
	if errors.Is(err, context.Canceled) {
		return &APIError{StatusCode: http.StatusInternalServerError, Detail: err.Error(), Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{StatusCode: http.StatusRequestTimeout, Detail: "Request timeout", Err: err}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || (errors.As(err, &urlErr) && isNetworkMessage(urlErr.Err)) {
		return &APIError{
			StatusCode: http.StatusServiceUnavailable,
			Detail:     "Network error - please check your connection",
			Err:        err,
		}
	}

	msg := err.Error()
	if msg == "" {
		msg = "Unknown error occurred"
	}
	return &APIError{StatusCode: http.StatusInternalServerError, Detail: msg, Err: err}
}

func isNetworkMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection") || strings.Contains(msg, "EOF") || strings.Contains(msg, "no such host")
}

func firstMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 {
			return list[0]
		}
		return ""
	}
	return looseString(raw)
}

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func decodeFields(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loose); err != nil || len(loose) == 0 {
		return nil
	}
	fields := make(map[string][]string, len(loose))
	for name, value := range loose {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			fields[name] = list
			continue
		}
		if s := looseString(value); s != "" {
			fields[name] = []string{s}
		}
	}
	return fields
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
