package api

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Reason  string `json:"reason,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest      = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized    = &AppError{Code: http.StatusUnauthorized, Message: "missing or invalid authorization"}
	ErrInvalidToken    = &AppError{Code: http.StatusUnauthorized, Message: "invalid or expired token"}
	ErrInvalidIdentity = &AppError{Code: http.StatusUnauthorized, Message: "invalid identity token"}
	ErrForbidden       = &AppError{Code: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound        = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrUserNotFound    = &AppError{Code: http.StatusNotFound, Message: "user not found"}
	ErrConflict        = &AppError{Code: http.StatusConflict, Message: "conflict"}
	ErrDuplicateEmail  = &AppError{Code: http.StatusConflict, Message: "user with this email already exists"}
	ErrMonthlyQuota    = &AppError{Code: http.StatusTooManyRequests, Message: "monthly quota exceeded", Reason: "monthly"}
	ErrDailyQuota      = &AppError{Code: http.StatusTooManyRequests, Message: "daily quota exceeded", Reason: "daily"}
	ErrUpstream        = &AppError{Code: http.StatusInternalServerError, Message: "generation failed"}
	ErrInternalServer  = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Code, appErr)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
