// Package response defines the JSON error bodies written by the HTTP layer.
package response

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes a single invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the body of every non-2xx JSON response.
type Error struct {
	Error     string            `json:"error"`
	Message   string            `json:"message,omitempty"`
	ExpiredAt *time.Time        `json:"expiredAt,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

var (
	EmptyRequestBody = Error{
		Error:   "Empty request body",
		Message: "Request body is empty. Please provide necessary data.",
	}

	InvalidRequestBody = Error{
		Error:   "Invalid request body",
		Message: "Request body must be a JSON object.",
	}

	RouteNotFound = Error{
		Error: "Route not found",
	}

	MethodNotAllowed = Error{
		Error: "Method not allowed",
	}

	TooManyRequests = Error{
		Error:   "Too many requests",
		Message: "Rate limit exceeded. Please try again later.",
	}

	ServerError = Error{
		Error: "Internal server error",
	}
)

// New returns an Error with the given message.
func New(msg string) Error {
	return Error{Error: msg}
}

// Expired returns the body for a short URL that expired at expiredAt.
func Expired(expiredAt time.Time) Error {
	return Error{
		Error:     "Short URL has expired",
		ExpiredAt: &expiredAt,
	}
}

// Validation builds an Error from the result of validator.Validate.Struct.
func Validation(err error) Error {
	return Error{
		Error:  "Validation error",
		Errors: getValidationErrors(err),
	}
}

// WithValidation returns a copy of e listing the invalid fields from err.
func (e Error) WithValidation(err error) Error {
	e.Errors = getValidationErrors(err)
	return e
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url", "http_url":
		return "Invalid url."
	case "alphanum":
		return "Only letters and digits are allowed."
	case "max":
		return "Value is too long."
	case "gt", "min":
		return "Value is too small."
	default:
		return "Invalid value."
	}
}

func getValidationErrors(err error) []ValidationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	validationErrs := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		validationErrs = append(validationErrs, ValidationError{
			Field:   e.Field(),
			Message: messageForTag(e.Tag()),
		})
	}

	return validationErrs
}
