package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/legado-reader/legado-client/internal/errors"
)

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("open book: %w", domainerrors.NotFoundf("book %d not found", 9))

	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.NotErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, "open book: book 9 not found", err.Error())
}

func TestError_Cause(t *testing.T) {
	cause := errors.New("token rejected")
	err := domainerrors.ErrSessionExpired.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, domainerrors.ErrSessionExpired)
	assert.Equal(t, "session expired: token rejected", err.Error())
	assert.NoError(t, domainerrors.ErrSessionExpired.Unwrap(), "sentinel stays untouched")

	wrapped := domainerrors.Wrap(cause, domainerrors.CodeUnavailable, "server unreachable")
	assert.ErrorIs(t, wrapped, domainerrors.ErrUnavailable)
	assert.ErrorIs(t, wrapped, cause)
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  *domainerrors.Error
		want int
	}{
		{domainerrors.ErrNotFound, http.StatusNotFound},
		{domainerrors.ErrUnauthorized, http.StatusUnauthorized},
		{domainerrors.ErrSessionExpired, http.StatusUnauthorized},
		{domainerrors.Validation("bad"), http.StatusBadRequest},
		{domainerrors.Unavailable("down"), http.StatusBadGateway},
		{domainerrors.Internal("oops"), http.StatusInternalServerError},
		{&domainerrors.Error{Code: "SOMETHING_NEW"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestFieldsOf(t *testing.T) {
	fields := map[string]string{"sourceUrl": "is required"}
	err := fmt.Errorf("save: %w", domainerrors.ValidationFields("sourceUrl is required", fields))

	assert.Equal(t, fields, domainerrors.FieldsOf(err))
	assert.Nil(t, domainerrors.FieldsOf(domainerrors.Validationf("too long: %d", 5)))
	assert.Nil(t, domainerrors.FieldsOf(errors.New("plain")))

	// Copies made with WithCause do not share the map.
	copied := domainerrors.ValidationFields("x", fields).WithCause(errors.New("y"))
	copied.Fields["name"] = "is required"
	assert.Len(t, fields, 1)
}
