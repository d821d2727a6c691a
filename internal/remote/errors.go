package remote

import (
	"fmt"
	"net/http"
)

// Kind separates failures the transport saw from failures the server
// reported inside a well-formed envelope. Callers normally do not need it.
type Kind string

const (
	// KindTransport covers unreachable servers, non-2xx responses without an
	// envelope, and undecodable bodies.
	KindTransport Kind = "transport"
	// KindApplication is an envelope whose code is not 200.
	KindApplication Kind = "application"
)

// RemoteError is the single error type returned by every Client call.
type RemoteError struct { //nolint:revive // Remote prefix reads better at call sites in other packages
	Kind       Kind
	Op         string
	HTTPStatus int
	AppCode    int
	Message    string
	cause      error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Op == "":
		return e.Message
	case e.Kind == KindApplication:
		return fmt.Sprintf("%s: %s (code %d)", e.Op, e.Message, e.AppCode)
	case e.HTTPStatus != 0:
		return fmt.Sprintf("%s: %s (http %d)", e.Op, e.Message, e.HTTPStatus)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *RemoteError) Unwrap() error { return e.cause }

// Is matches the status sentinels below against either the HTTP status or
// the envelope code, so a 401 reported either way satisfies
// errors.Is(err, ErrUnauthorized).
func (e *RemoteError) Is(target error) bool {
	t, ok := target.(*RemoteError)
	if !ok || t.Op != "" || t.HTTPStatus == 0 {
		return false
	}
	if t.HTTPStatus == http.StatusInternalServerError {
		return isServerStatus(e.HTTPStatus) || isServerStatus(e.AppCode)
	}
	return e.HTTPStatus == t.HTTPStatus || e.AppCode == t.HTTPStatus
}

// Status returns the most specific status known: the envelope code for
// application failures, else the HTTP status.
func (e *RemoteError) Status() int {
	if e.Kind == KindApplication && e.AppCode != 0 {
		return e.AppCode
	}
	return e.HTTPStatus
}

func isServerStatus(code int) bool {
	return code >= 500 && code < 600
}

// Sentinels for errors.Is.
var (
	ErrBadRequest   = &RemoteError{HTTPStatus: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized = &RemoteError{HTTPStatus: http.StatusUnauthorized, Message: "unauthorized"}
	ErrForbidden    = &RemoteError{HTTPStatus: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound     = &RemoteError{HTTPStatus: http.StatusNotFound, Message: "not found"}
	ErrRateLimited  = &RemoteError{HTTPStatus: http.StatusTooManyRequests, Message: "rate limited"}
	// ErrServer matches any 5xx status or code.
	ErrServer = &RemoteError{HTTPStatus: http.StatusInternalServerError, Message: "server error"}
)

func transportError(op string, status int, msg string, cause error) *RemoteError {
	return &RemoteError{Kind: KindTransport, Op: op, HTTPStatus: status, Message: msg, cause: cause}
}

func applicationError(op string, status, code int, msg string) *RemoteError {
	if msg == "" {
		msg = http.StatusText(code)
	}
	if msg == "" {
		msg = "request failed"
	}
	return &RemoteError{Kind: KindApplication, Op: op, HTTPStatus: status, AppCode: code, Message: msg}
}
