// Package validation wraps go-playground/validator with a singleton
// instance and turns field errors into client-safe messages keyed by the
// JSON field name.
//
//	type signupReq struct {
//	    Email string `json:"email" validate:"required,email"`
//	}
//	if err := validation.Struct(&req); err != nil {
//	    return err // *validation.Error, rendered as 400
//	}
//
// Cross-field rules (password confirmation, discount below price) are
// plain functions in the model package that append to the same Error.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Error collects one message per failed rule.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return "Invalid input data."
	}
	return "Invalid input data. " + strings.Join(e.Messages, "; ")
}

// Add appends a message.
func (e *Error) Add(msg string) { e.Messages = append(e.Messages, msg) }

// OrNil returns e when it holds at least one message, nil otherwise.
func (e *Error) OrNil() error {
	if e == nil || len(e.Messages) == 0 {
		return nil
	}
	return e
}

// Get returns the shared validator. Field names in errors are taken from
// the json tag.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s and returns *Error on failure.
func Struct(s any) error {
	return Collect(s).OrNil()
}

// Collect validates s and always returns a non-nil *Error so callers can
// append cross-field messages before deciding.
func Collect(s any) *Error {
	out := &Error{}
	err := Get().Struct(s)
	if err == nil {
		return out
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out.Add(err.Error())
		return out
	}
	for _, fe := range fieldErrs {
		out.Add(message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", f)
	case "email":
		return "Please provide a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at least %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at most %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", f, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", f, fe.Param())
	case "latitude", "longitude":
		return fmt.Sprintf("%s must be a valid %s", f, fe.Tag())
	default:
		return fmt.Sprintf("%s failed %s validation", f, fe.Tag())
	}
}

// Merge combines the messages of several validation results. Errors that
// are not *Error are returned as-is, first one wins.
func Merge(errs ...error) error {
	out := &Error{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve *Error
		if !errors.As(err, &ve) {
			return err
		}
		out.Messages = append(out.Messages, ve.Messages...)
	}
	return out.OrNil()
}
