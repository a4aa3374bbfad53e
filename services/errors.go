package services

import "net/http"

// ServiceError carries an HTTP status alongside a client-safe message.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func NewServiceError(code int, message string) *ServiceError {
	return &ServiceError{StatusCode: code, Message: message}
}

var (
	ErrMustBeLoggedIn = NewServiceError(http.StatusUnauthorized, "must be logged in")
	ErrInternal       = NewServiceError(http.StatusInternalServerError, "internal server error")
)
