package service

import (
	"net/http"

	httptransport "github.com/go-kit/kit/transport/http"
)

var _ httptransport.StatusCoder = ValidationError{}

// ErrEmptyNums is returned when a statistic is requested over no numbers.
var ErrEmptyNums = ValidationError{Message: "Nums are required"}

// ValidationError reports malformed or missing input. It always maps to
// 400 Bad Request.
type ValidationError struct {
	Message string `json:"message"`
}

func NewValidationError(msg string) ValidationError {
	return ValidationError{Message: msg}
}

func (e ValidationError) Error() string {
	return e.Message
}

func (e ValidationError) StatusCode() int {
	return http.StatusBadRequest
}
