package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "listing not found"},
			want: "listing not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to save",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to save: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(cause, ErrCodeConflict, "guarded"))

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should find cause through AppError")
	}
	if !IsConflict(err) {
		t.Errorf("IsConflict() = false, want true")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		err  error
		pred func(error) bool
	}{
		{NotFound("x"), IsNotFound},
		{Conflict("x"), IsConflict},
		{Validation("x"), IsValidation},
		{Forbidden("x"), IsForbidden},
		{Wrap(errors.New("t"), ErrCodeTimeout, "x"), IsTimeout},
		{Wrap(errors.New("c"), ErrCodeCanceled, "x"), IsCanceled},
	}
	for _, tt := range tests {
		if !tt.pred(tt.err) {
			t.Errorf("predicate failed for code %s", GetCode(tt.err))
		}
	}
	if IsNotFound(errors.New("plain")) {
		t.Errorf("plain error must not match")
	}
}

func TestWrapField(t *testing.T) {
	err := WrapField(errors.New("disallowed node type \"image\""), ErrCodeValidation, "root.children[1]")
	if GetField(err) != "root.children[1]" {
		t.Errorf("GetField() = %q", GetField(err))
	}
	if err.Message != "disallowed node type \"image\"" {
		t.Errorf("Message = %q", err.Message)
	}
	if GetField(errors.New("x")) != "" {
		t.Errorf("GetField on plain error should be empty")
	}
}
