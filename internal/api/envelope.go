package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the response wrapper returned by every client call. The backend
// owns the success flag: on a 2xx response the body is decoded as an envelope,
// and a body without an explicit "success" key is treated as a bare payload and
// reported as successful. The client only synthesizes failure envelopes itself,
// for transport errors, non-2xx statuses, and parse failures.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	// StatusCode is the HTTP status of the response, or 0 when the request
	// never reached the server.
	StatusCode int `json:"-"`
}

// Err returns nil when the envelope is successful, otherwise an *APIError
// describing the failure.
func (e Envelope[T]) Err() error {
	if e.Success {
		return nil
	}
	msg := e.Error
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = "request failed"
	}
	return &APIError{StatusCode: e.StatusCode, Message: msg}
}

// APIError is a failed client call as an error value.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return "api error: " + e.Message
}

// failure builds a synthesized failure envelope.
func failure[T any](statusCode int, format string, args ...any) Envelope[T] {
	return Envelope[T]{
		Success:    false,
		Error:      fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// rawEnvelope mirrors the backend wrapper before the payload type is known.
// Success is a pointer so "absent" can be told apart from "false".
type rawEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// decodeEnvelope interprets a 2xx response body according to the envelope
// policy above.
func decodeEnvelope[T any](statusCode int, body []byte) Envelope[T] {
	env := Envelope[T]{Success: true, StatusCode: statusCode}

	if len(bytes.TrimSpace(body)) == 0 {
		return env
	}

	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil || raw.Success == nil {
		// Not an envelope (an array, scalar, or any object without an
		// explicit success key, even one whose top-level key happens to
		// be "data"): the whole body is the payload.
		if err := json.Unmarshal(body, &env.Data); err != nil {
			return failure[T](statusCode, "parse response: %v", err)
		}
		return env
	}

	env.Message = raw.Message
	env.Error = raw.Error

	if raw.Success != nil && !*raw.Success {
		env.Success = false
		if env.Error == "" {
			env.Error = raw.Message
		}
		if env.Error == "" {
			env.Error = "backend reported failure"
		}
		return env
	}

	if raw.Data != nil {
		if err := json.Unmarshal(raw.Data, &env.Data); err != nil {
			return failure[T](statusCode, "parse response data: %v", err)
		}
	}
	return env
}

// errorFromBody extracts a human-readable error from a non-2xx response body,
// falling back to the HTTP status.
func errorFromBody(statusCode int, body []byte) string {
	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err == nil {
		if raw.Error != "" {
			return raw.Error
		}
		if raw.Message != "" {
			return raw.Message
		}
	}
	// Some backends put validation details in a "detail" field.
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	return fmt.Sprintf("server returned HTTP %d", statusCode)
}
