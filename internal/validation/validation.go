// Package validation checks request structs against their validate tags and
// reports failures per JSON field name.
package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/jrsteele09/go-reserve-client/members"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// password applies the member password policy
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return members.ValidatePasswordStrength(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Struct validates s using its validate tags. Failures come back as *Error.
func Struct(s any) error {
	if err := validate.Struct(s); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			return &Error{Errors: fieldErrors}
		}
		return err
	}
	return nil
}

// Error lists the fields that failed validation. It matches
// errors.ErrInvalidInput.
type Error struct {
	Errors validator.ValidationErrors
}

func (e *Error) Error() string {
	fields := e.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, fields[name])
	}
	return strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool {
	return target == apperrors.ErrInvalidInput
}

// Fields maps each failing JSON field to its message
func (e *Error) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	return fields
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	case "password":
		if err := members.ValidatePasswordStrength(fmt.Sprint(fe.Value())); err != nil {
			return err.Error()
		}
		return field + " is too weak"
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}
