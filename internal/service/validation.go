package service

import (
	"errors"
	"fmt"
	"strings"

	"pickbetter-shop/internal/domain"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidInput = errors.New("invalid input")

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return domain.SlugPattern.MatchString(fl.Field().String())
	})
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidInputError lists every field that failed validation.
type InvalidInputError struct {
	Fields []ValidationError
}

func (e *InvalidInputError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

func invalidField(field, message string) error {
	return &InvalidInputError{Fields: []ValidationError{{Field: field, Message: message}}}
}

// validateStruct runs the struct tags of v and converts failures into an
// InvalidInputError.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	fields := FormatValidationErrors(err)
	if len(fields) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return &InvalidInputError{Fields: fields}
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return errors
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Value is too long"
	case "slug":
		return "Only letters, numbers, underscores and hyphens are allowed"
	default:
		return "Invalid value"
	}
}
