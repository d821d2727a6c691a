package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/validation"
)

func TestValidator_LoginRequest(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       domain.LoginRequest
		wantField string
		wantMsg   string
	}{
		{
			name: "valid",
			req:  domain.LoginRequest{Username: "reader", Password: "secret1"},
		},
		{
			name:      "missing username",
			req:       domain.LoginRequest{Password: "secret1"},
			wantField: "username",
			wantMsg:   "is required",
		},
		{
			name:      "short password",
			req:       domain.LoginRequest{Username: "reader", Password: "12345"},
			wantField: "password",
			wantMsg:   "must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrValidation))

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Equal(t, tt.wantMsg, validation.FieldErrors(err)[tt.wantField])
		})
	}
}

func TestValidator_RegisterEmailOptional(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(domain.RegisterRequest{Username: "reader", Password: "secret1"}))

	err := v.Validate(domain.RegisterRequest{Username: "reader", Password: "secret1", Email: "nope"})
	require.Error(t, err)
	assert.Equal(t, "must be a valid email address", validation.FieldErrors(err)["email"])
}

func TestValidator_BookSource(t *testing.T) {
	v := validation.New()

	err := v.Validate(domain.BookSource{})
	require.Error(t, err)
	fields := validation.FieldErrors(err)
	assert.Contains(t, fields, "sourceName")
	assert.Contains(t, fields, "sourceUrl")

	assert.NoError(t, v.Validate(domain.BookSource{SourceName: "笔趣阁", SourceURL: "https://www.example.com"}))
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("url", "https://example.com/sources.json", "required,httpurl"))

	err := v.Var("url", "ftp://example.com/x", "required,httpurl")
	require.Error(t, err)
	assert.Equal(t, "url must be a valid http(s) URL", err.Error())
}

func TestFieldErrors_NonValidation(t *testing.T) {
	assert.Nil(t, validation.FieldErrors(errors.New("plain")))
	assert.Nil(t, validation.FieldErrors(domainerrors.Internal("x")))
}
