package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/pages"
	"github.com/legado-reader/legado-client/internal/remote"
)

// APIError is a custom error type that implements huma.StatusError.
// Its JSON form is the same envelope as a successful response, with the
// failing code and per-field details in data.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status    int
	Code      int    `json:"code" doc:"Envelope code, 200 on success"`
	Message   string `json:"message" doc:"Human-readable error message"`
	Data      any    `json:"data" doc:"Additional error details"`
	Timestamp int64  `json:"timestamp" doc:"Server time in unix milliseconds"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to report domain and remote errors
// in the envelope. Call this after creating the huma.API but before
// registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := fromError(err); apiErr != nil {
				return apiErr
			}
		}

		// Request validation by huma: collect the failing locations.
		var details map[string]string
		for _, err := range errs {
			var detail *huma.ErrorDetail
			if errors.As(err, &detail) {
				if details == nil {
					details = make(map[string]string)
				}
				details[detail.Location] = detail.Message
			}
		}

		return newAPIError(status, status, msg, details)
	}
}

// fromError maps errors returned by the pages. It returns nil for errors it
// does not know.
func fromError(err error) *APIError {
	notice := pages.NoticeFrom(err)

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		var data any
		if notice.Fields != nil {
			data = notice.Fields
		}
		return newAPIError(status, status, notice.Message, data)
	}

	var remoteErr *remote.RemoteError
	if errors.As(err, &remoteErr) {
		status, code := remoteStatus(remoteErr)
		return newAPIError(status, code, notice.Message, nil)
	}

	return nil
}

// remoteStatus picks the HTTP status and envelope code for a failure of the
// legado server. Client errors keep their status; anything the server did
// wrong becomes a bad gateway.
func remoteStatus(e *remote.RemoteError) (status, code int) {
	if e.Kind == remote.KindApplication {
		code = e.AppCode
		if isErrorStatus(code) && code < http.StatusInternalServerError {
			return code, code
		}
		return http.StatusBadGateway, code
	}

	if e.HTTPStatus == 0 || e.HTTPStatus >= http.StatusInternalServerError {
		return http.StatusBadGateway, http.StatusBadGateway
	}
	return e.HTTPStatus, e.HTTPStatus
}

func isErrorStatus(code int) bool {
	return code >= 400 && code < 600
}

func newAPIError(status, code int, msg string, data any) *APIError {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{
		status:    status,
		Code:      code,
		Message:   msg,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}
