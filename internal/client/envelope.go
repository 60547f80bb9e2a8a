package client

import (
	"bytes"
	"encoding/json"
)

// TokenPair is the access/refresh credential pair issued by the API.
// Older endpoints name the access token "token".
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (p *TokenPair) UnmarshalJSON(data []byte) error {
	var aux struct {
		Access  string `json:"access"`
		Token   string `json:"token"`
		Refresh string `json:"refresh"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Access = aux.Access
	if p.Access == "" {
		p.Access = aux.Token
	}
	p.Refresh = aux.Refresh
	return nil
}

// Detail is a server message that arrives either as a plain string or as
// an object of the form {"detail": "..."}.
type Detail string

func (d *Detail) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = Detail(s)
		return nil
	}
	var obj struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.Detail) > 0 {
		if err := json.Unmarshal(obj.Detail, &s); err == nil {
			*d = Detail(s)
			return nil
		}
	}
	*d = ""
	return nil
}

// Status is the status block every envelope carries.
type Status struct {
	StatusCode int    `json:"status_code"`
	Detail     Detail `json:"detail"`
}

// Pagination holds cursor links for list endpoints.
type Pagination struct {
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}

// Response is the API envelope around a payload of type T.
type Response[T any] struct {
	Data       T           `json:"data"`
	Status     Status      `json:"status"`
	Pagination *Pagination `json:"pagination,omitempty"`

	// HTTPStatus and RequestID describe the final send of the call.
	HTTPStatus int    `json:"-"`
	RequestID  string `json:"-"`
}

// Envelope is a Response whose payload has not been decoded yet.
type Envelope = Response[json.RawMessage]

// OK reports whether the envelope carries a 2xx status code. A 2xx HTTP
// response can still carry a business failure here.
func (r *Response[T]) OK() bool {
	return r.Status.StatusCode >= 200 && r.Status.StatusCode < 300
}

// Message returns the envelope detail, or fallback when it is empty.
func (r *Response[T]) Message(fallback string) string {
	if r.Status.Detail != "" {
		return string(r.Status.Detail)
	}
	return fallback
}

// decodeEnvelope parses a successful response body. Bodies that are not
// wrapped in an envelope are carried whole as the payload.
func decodeEnvelope(httpStatus int, body []byte) (*Envelope, error) {
	env := &Envelope{HTTPStatus: httpStatus}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		env.Status.StatusCode = httpStatus
		return env, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err == nil {
		_, hasStatus := keys["status"]
		_, hasData := keys["data"]
		if hasStatus || hasData {
			if err := json.Unmarshal(body, env); err != nil {
				return nil, err
			}
			if env.Status.StatusCode == 0 {
				env.Status.StatusCode = httpStatus
			}
			return env, nil
		}
	} else if !json.Valid(body) {
		return nil, err
	}

	env.Data = json.RawMessage(body)
	env.Status.StatusCode = httpStatus
	return env, nil
}

// Decode converts an Envelope into a typed Response.
func Decode[T any](env *Envelope) (*Response[T], error) {
	out := &Response[T]{
		Status:     env.Status,
		Pagination: env.Pagination,
		HTTPStatus: env.HTTPStatus,
		RequestID:  env.RequestID,
	}
	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out.Data); err != nil {
		return nil, &APIError{
			StatusCode: 500,
			Detail:     "Invalid response payload",
			Err:        err,
		}
	}
	return out, nil
}
