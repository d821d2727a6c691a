// Package validation checks form payloads (login, registration, source edit)
// before they leave the client.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/legado-reader/legado-client/internal/errors"
)

// messages maps a validation tag to the text shown next to the field. %s
// is the tag parameter.
var messages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"min":      "must be at least %s characters",
	"max":      "must not exceed %s characters",
	"url":      "must be a valid http(s) URL",
	"httpurl":  "must be a valid http(s) URL",
	"oneof":    "must be one of: %s",
}

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that names fields by their JSON key and knows
// the "httpurl" tag (absolute http or https URL).
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("httpurl", isHTTPURL)
	return &Validator{v: v}
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func isHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Validate checks s and returns a validation *errors.Error with one
// message per failing field.
func (v *Validator) Validate(s any) error {
	return convert(v.v.Struct(s), "")
}

// Var checks a single value against tag, reporting it as field.
func (v *Validator) Var(field string, value any, tag string) error {
	return convert(v.v.Var(value, tag), field)
}

// convert turns validator errors into a domain error. The message of the
// first failing field becomes the error message. name overrides the field
// name, which is empty for Var.
func convert(err error, name string) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}

	fields := make(map[string]string, len(errs))
	var first string
	for _, fe := range errs {
		field := fe.Field()
		if name != "" {
			field = name
		}
		if _, seen := fields[field]; seen {
			continue
		}
		fields[field] = message(fe)
		if first == "" {
			first = field + " " + fields[field]
		}
	}
	return domainerrors.ValidationFields(first, fields)
}

func message(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}

// FieldErrors extracts the per-field messages from a validation error.
func FieldErrors(err error) map[string]string {
	var de *domainerrors.Error
	if !errors.As(err, &de) || de.Code != domainerrors.CodeValidation {
		return nil
	}
	return de.Fields
}
