// Package errors carries typed application errors across layer boundaries.
// Handlers map the Code to an HTTP status; Field names the offending input.
package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict" // unique slug, guarded delete
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeForbidden  ErrorCode = "forbidden"
	ErrCodeInternal   ErrorCode = "internal"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCanceled   ErrorCode = "canceled"
)

// AppError works with errors.Is and errors.As through Unwrap.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field is a column name or a document path such as root.children[2].
	Field string
}

func (e *AppError) Error() string {
	if e.Cause == nil || e.Cause.Error() == e.Message {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error { return e.Cause }

func NotFound(message string) *AppError { return &AppError{Code: ErrCodeNotFound, Message: message} }

func NotFoundf(format string, args ...any) *AppError {
	return NotFound(fmt.Sprintf(format, args...))
}

func Conflict(message string) *AppError   { return &AppError{Code: ErrCodeConflict, Message: message} }
func Validation(message string) *AppError { return &AppError{Code: ErrCodeValidation, Message: message} }
func Forbidden(message string) *AppError  { return &AppError{Code: ErrCodeForbidden, Message: message} }

// ValidationField reports invalid input at field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Wrap returns nil for a nil err.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// WrapField keeps err's text as the message and attaches field.
func WrapField(err error, code ErrorCode, field string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: err.Error(), Cause: err, Field: field}
}

func as(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// GetCode returns "" when err holds no AppError.
func GetCode(err error) ErrorCode {
	if appErr, ok := as(err); ok {
		return appErr.Code
	}
	return ""
}

// GetField returns the first AppError's field, if any.
func GetField(err error) string {
	if appErr, ok := as(err); ok {
		return appErr.Field
	}
	return ""
}

func IsNotFound(err error) bool   { return GetCode(err) == ErrCodeNotFound }
func IsConflict(err error) bool   { return GetCode(err) == ErrCodeConflict }
func IsValidation(err error) bool { return GetCode(err) == ErrCodeValidation }
func IsForbidden(err error) bool  { return GetCode(err) == ErrCodeForbidden }
func IsTimeout(err error) bool    { return GetCode(err) == ErrCodeTimeout }
func IsCanceled(err error) bool   { return GetCode(err) == ErrCodeCanceled }
