// Package service holds the marketplace rules that sit between the page
// handlers and the REST bindings: input validation before any network call,
// the booking state guard and booking event publishing.
package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/gearshare/internal/repository"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// check validates v and folds every field error into one ErrValidation.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", repository.ErrValidation, err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", repository.ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "min":
		if fe.Kind().String() == "slice" {
			return "select at least " + fe.Param() + " " + name
		}
		if fe.Kind().String() == "string" {
			return name + " must be at least " + fe.Param() + " characters"
		}
		return name + " must be at least " + fe.Param()
	case "max":
		if fe.Kind().String() == "string" {
			return name + " must be at most " + fe.Param() + " characters"
		}
		return name + " must be at most " + fe.Param()
	case "gt":
		return name + " must be greater than " + fe.Param()
	case "gte":
		return name + " must not be negative"
	case "datetime":
		return name + " must be a date (YYYY-MM-DD)"
	case "url":
		return name + " must be a URL"
	}
	return name + " is invalid"
}

// fieldLabel turns "PricePerDay" into "price per day".
func fieldLabel(f string) string {
	var b strings.Builder
	for i, r := range f {
		if i > 0 && r >= 'A' && r <= 'Z' && !(f[i-1] >= 'A' && f[i-1] <= 'Z') {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// ValidPrice reports whether p is a finite amount above zero.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

// invalid builds an ErrValidation with a fixed message.
func invalid(msg string) error {
	return fmt.Errorf("%w: %s", repository.ErrValidation, msg)
}

// Message returns the human part of an error produced by this package or
// the repository, suitable for showing next to a form.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *repository.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	s := err.Error()
	for _, sentinel := range []error{repository.ErrValidation, repository.ErrInvalidState, repository.ErrConflict} {
		if p := sentinel.Error() + ": "; strings.HasPrefix(s, p) {
			return strings.TrimPrefix(s, p)
		}
	}
	return s
}
