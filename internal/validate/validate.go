// Package validate checks form and request structs and reports
// field-by-field messages keyed by JSON name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field path such as "email" or "contacts.0.phone" to a message.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for k, v := range e {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, "; ")
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	if err := val.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register phone validation: %v", err))
	}
	return val
}

// Struct validates s. It returns nil or an Errors value.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		key := fieldPath(fe.Namespace())
		if _, seen := out[key]; !seen {
			out[key] = message(fe)
		}
	}
	return out
}

// Fields returns the per-field messages in err, or nil when err is not a
// validation failure.
func Fields(err error) Errors {
	var e Errors
	if errors.As(err, &e) {
		return e
	}
	return nil
}

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// fieldPath drops the struct name and turns "contacts[0].phone" into "contacts.0.phone".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return indexPattern.ReplaceAllString(ns, ".$1")
}

func message(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a phone number"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", param)
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s entries", param)
		}
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", param)
		}
		return fmt.Sprintf("must be at most %s", param)
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", param)
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(param, " ", ", "))
	case "url":
		return "must be a valid URL"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
