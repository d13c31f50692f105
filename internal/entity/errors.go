package entity

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrURLNotFound is returned when a URL with the specified slug cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrUniqueViolation is returned when a URL cannot be created because its slug
	// or its original URL is already stored.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrSlugExists is returned when the slug is already taken.
	ErrSlugExists = fmt.Errorf("%w: slug exists", ErrUniqueViolation)
	// ErrOriginalURLExists is returned when the original URL has already been shortened.
	ErrOriginalURLExists = fmt.Errorf("%w: original url exists", ErrUniqueViolation)
	// ErrSlugExhausted is returned when no unique slug could be generated within the retry budget.
	ErrSlugExhausted = errors.New("maximum retries exceeded for generating slug")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field string
	Tag   string
}

// ValidationError is returned when the input of an operation is malformed.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Fields returns the invalid fields, if the underlying error carries them.
func (e *ValidationError) Fields() []FieldError {
	var errs validator.ValidationErrors
	if !errors.As(e.Err, &errs) {
		return nil
	}

	fields := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}

	return fields
}
