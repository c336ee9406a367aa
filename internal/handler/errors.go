package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"agrisite-api/internal/data"
	"agrisite-api/internal/middleware"
	"agrisite-api/internal/service"
	"agrisite-api/internal/upload"
)

// appError maps service, storage and upload errors to HTTP responses. name is used
// in the not-found message.
func appError(err error, name string) *middleware.AppError {
	var (
		validationErr *service.ValidationError
		conflictErr   *service.ConflictError
		formatErr     *upload.FormatError
		maxBytesErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &validationErr):
		return &middleware.AppError{Error: err, Message: validationErr.Message, Code: http.StatusBadRequest}
	case errors.As(err, &formatErr):
		return &middleware.AppError{Error: err, Message: formatErr.Error(), Code: http.StatusBadRequest}
	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &maxBytesErr):
		return &middleware.AppError{Error: err, Message: "File too large", Code: http.StatusBadRequest}
	case errors.Is(err, service.ErrInvalidCredentials):
		return &middleware.AppError{Error: err, Message: "Invalid email or password", Code: http.StatusUnauthorized}
	case errors.Is(err, data.ErrNotFound):
		return &middleware.AppError{Error: err, Message: notFoundMessage(name), Code: http.StatusNotFound}
	case errors.As(err, &conflictErr):
		return &middleware.AppError{Error: err, Message: conflictErr.Message, Code: http.StatusConflict}
	default:
		return &middleware.AppError{Error: err, Message: "Internal server error", Code: http.StatusInternalServerError}
	}
}

func notFoundMessage(name string) string {
	if name == "" {
		return "Not found"
	}
	return fmt.Sprintf("%s not found", capitalize(name))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func badRequest(err error, message string) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: message, Code: http.StatusBadRequest}
}
