package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxNodes bounds generated graphs; the ordered-pair edge pass is quadratic.
	MaxNodes = 100000
	// MaxSteps bounds a single run.
	MaxSteps = 1000000
	// MaxWorkers bounds the propagation worker pool.
	MaxWorkers = 1024
)

func init() {
	validate = validator.New()
}

// Struct validates a tagged struct and reports the first failure as a
// ParameterError attributed to op.
func Struct(op string, s any) error {
	if s == nil {
		return NewError(op).Param("config").Value(nil).Reason("cannot be nil").Err()
	}
	if err := validate.Struct(s); err != nil {
		return formatValidationError(op, err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(op string, err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return NewError(op).Param("config").Value(nil).Reason("%v", err).Err()
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		b := NewError(op).Param(e.Namespace()).Value(e.Value())
		param := e.Param()

		switch e.Tag() {
		case "required":
			return b.Reason("field is required").Err()
		case "min", "gte":
			return b.Reason("must be at least %s", param).Err()
		case "max", "lte":
			return b.Reason("must not exceed %s", param).Err()
		case "gt":
			return b.Reason("must be greater than %s", param).Err()
		case "oneof":
			return b.Reason("must be one of [%s]", param).Err()
		case "dive":
			return b.Reason("invalid element in array").Err()
		default:
			return b.Reason("validation failed (%s)", e.Tag()).Err()
		}
	}

	return NewError(op).Param("config").Reason("%v", err).Err()
}
