package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/layer-3/cobic/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"required":         "%s is required",
	"email":            "%s must be a valid email address",
	"min":              "%s must be at least %s characters long",
	"max":              "%s must be no longer than %s characters",
	"gte":              "%s must be greater than or equal to %s",
	"lte":              "%s must be less than or equal to %s",
	"oneof":            "%s must be one of %s",
	"alphanum":         "%s may only contain letters and digits",
	"base64":           "%s must be base64 encoded",
	"datetime":         "%s must be a date in the form %s",
	"iso3166_1_alpha2": "%s must be a two letter country code",
	"e164":             "%s must be a phone number in international format",
}

func fieldMessage(e validator.FieldError) string {
	msg, ok := fieldMessages[e.Tag()]
	if !ok {
		return fmt.Sprintf("%s is invalid", e.Field())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, e.Field(), e.Param())
	}
	return fmt.Sprintf(msg, e.Field())
}

// validateStruct runs the struct tags of v and wraps failures in
// core.ErrValidation
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		msgs = append(msgs, fieldMessage(e))
	}
	return fmt.Errorf("%w: %s", core.ErrValidation, strings.Join(msgs, "; "))
}

// invalid reports a failed check that struct tags cannot express
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrValidation, fmt.Sprintf(format, args...))
}
