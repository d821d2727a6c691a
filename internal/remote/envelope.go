package remote

import (
	"encoding/json"
	"net/http"
)

// SuccessCode is the envelope code of a successful response.
const SuccessCode = 200

// Envelope is the wrapper every API response uses.
type Envelope[T any] struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// rawEnvelope keeps Code as a pointer so a body without a code field is
// recognised as "not an envelope".
type rawEnvelope struct {
	Code      *int            `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Result is the outcome of one call: Data on success, Err otherwise.
type Result[T any] struct {
	Data T
	Err  error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Unwrap splits the result into the usual Go pair.
func (r Result[T]) Unwrap() (T, error) { return r.Data, r.Err }

// unwrapEnvelope turns an HTTP response into the envelope's data or a
// RemoteError. Any code other than 200 is a failure regardless of HTTP status.
func unwrapEnvelope(op string, status int, body []byte) (json.RawMessage, error) {
	var env rawEnvelope
	decodeErr := json.Unmarshal(body, &env)
	isEnvelope := decodeErr == nil && env.Code != nil

	if !isEnvelope {
		if status < 200 || status > 299 {
			return nil, transportError(op, status, statusMessage(status, body), nil)
		}
		return nil, transportError(op, status, "malformed response envelope", decodeErr)
	}

	if *env.Code != SuccessCode {
		return nil, applicationError(op, status, *env.Code, env.Message)
	}
	if status < 200 || status > 299 {
		return nil, transportError(op, status, statusMessage(status, nil), nil)
	}
	return env.Data, nil
}

// decodeData decodes envelope data into T. A null or absent data field
// yields the zero value.
func decodeData[T any](op string, data json.RawMessage) (T, error) {
	var out T
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, transportError(op, http.StatusOK, "malformed response data", err)
	}
	return out, nil
}

func statusMessage(status int, body []byte) string {
	// Spring's default error body carries the reason in "message" or "error".
	var springErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &springErr) == nil {
		if springErr.Message != "" {
			return springErr.Message
		}
		if springErr.Error != "" {
			return springErr.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unexpected status"
}
