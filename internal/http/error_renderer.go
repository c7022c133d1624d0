package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/unevent/unevent-api/internal/errors"
)

// statusClientClosedRequest is the nginx convention for a client that went away mid-request.
const statusClientClosedRequest = 499

// DetermineErrorStatus maps an application error to an HTTP status and error code.
// Errors without an AppError code are internal.
func DetermineErrorStatus(err error) (int, apperrors.ErrorCode) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case apperrors.IsValidation(err):
		return http.StatusBadRequest, apperrors.ErrCodeValidation
	case apperrors.IsNotFound(err):
		return http.StatusNotFound, apperrors.ErrCodeNotFound
	case apperrors.IsConflict(err):
		return http.StatusConflict, apperrors.ErrCodeConflict
	case apperrors.IsForbidden(err):
		return http.StatusForbidden, apperrors.ErrCodeForbidden
	case apperrors.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, apperrors.ErrCodeTimeout
	case apperrors.IsCanceled(err), errors.Is(err, context.Canceled):
		return statusClientClosedRequest, apperrors.ErrCodeCanceled
	default:
		return http.StatusInternalServerError, apperrors.ErrCodeInternal
	}
}

// ErrorOpts groups what RenderError needs.
type ErrorOpts struct {
	W      http.ResponseWriter
	R      *http.Request
	Err    error
	Logger *slog.Logger
}

// RenderError writes err as a JSON error body. Internal errors are logged and
// replaced by a generic message so causes never reach the client.
func RenderError(opts ErrorOpts) {
	status, code := DetermineErrorStatus(opts.Err)
	p := ErrorParams{Code: status, ErrCode: string(code), Err: opts.Err}

	var appErr *apperrors.AppError
	if errors.As(opts.Err, &appErr) {
		p.Err = errors.New(appErr.Message)
		p.Field = appErr.Field
	}

	if status >= http.StatusInternalServerError {
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(opts.R.Context(), "request failed",
			"method", opts.R.Method,
			"path", opts.R.URL.Path,
			"error", opts.Err,
		)
		p.Err = errors.New("internal server error")
	}

	WriteError(opts.W, p)
}
