// Package response defines the JSON bodies returned for failed requests.
package response

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Response is the body of every error reply. Error is always set.
type Response struct {
	Error   string            `json:"error"`
	Details []validationError `json:"details,omitempty"`
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

var (
	EmptyRequestBodyResponse = Response{
		Error: "Request body is empty. Please provide necessary data.",
	}

	BadRequestResponse = Response{
		Error: "Request body is malformed.",
	}

	InvalidURLResponse = Response{
		Error: "URL is missing or malformed.",
	}

	InvalidShortCodeResponse = Response{
		Error: "Short code is missing.",
	}

	ResourceNotFoundResponse = Response{
		Error: "Short URL not found.",
	}

	ServerErrorResponse = Response{
		Error: "An internal server error occurred. Please try again later.",
	}
)

// ValidationErrorResponse builds a Response listing every failed field in err.
func ValidationErrorResponse(err error) Response {
	return Response{
		Error:   "Request validation failed.",
		Details: getValidationErrors(err),
	}
}

func issueForTag(tag string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url":
		return "Invalid url."
	default:
		return "Invalid value."
	}
}

func getValidationErrors(err error) []validationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	validationErrs := make([]validationError, 0, len(errs))
	for _, e := range errs {
		validationErrs = append(validationErrs, validationError{
			Field: e.Field(),
			Value: e.Value(),
			Issue: issueForTag(e.Tag()),
		})
	}

	return validationErrs
}
