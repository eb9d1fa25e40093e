package errors

import (
	"errors"
	"testing"
)

type customError struct {
	Msg string
}

func (e customError) Error() string { return e.Msg }

func TestNew(t *testing.T) {
	err := New("test error")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "test error" {
		t.Errorf("expected 'test error', got '%s'", err.Error())
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("wrap non-nil error", func(t *testing.T) {
		wrapped := Wrap(baseErr, "wrapped")
		if wrapped == nil {
			t.Fatal("expected wrapped error, got nil")
		}
		expected := "wrapped: base error"
		if wrapped.Error() != expected {
			t.Errorf("expected '%s', got '%s'", expected, wrapped.Error())
		}
		if !errors.Is(wrapped, baseErr) {
			t.Error("expected wrapped error to wrap baseErr")
		}
	})

	t.Run("wrap nil error", func(t *testing.T) {
		if wrapped := Wrap(nil, "wrapped"); wrapped != nil {
			t.Errorf("expected nil, got %v", wrapped)
		}
	})
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrNotFound, "transfer %d", 7)
	if wrapped.Error() != "transfer 7: not found" {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("expected wrapped error to match ErrNotFound")
	}
	if Wrapf(nil, "x") != nil {
		t.Error("expected nil for nil error")
	}
}

func TestAs(t *testing.T) {
	err := Wrap(customError{Msg: "boom"}, "context")

	var target customError
	if !As(err, &target) {
		t.Fatal("expected As to find customError")
	}
	if target.Msg != "boom" {
		t.Errorf("expected 'boom', got '%s'", target.Msg)
	}
}

func TestAuthFailedError(t *testing.T) {
	err := Wrap(&AuthFailedError{RemainingAttempts: 2}, "verify totp")

	if !Is(err, ErrAuthFailed) {
		t.Fatal("expected AuthFailedError to unwrap to ErrAuthFailed")
	}

	var authErr *AuthFailedError
	if !As(err, &authErr) {
		t.Fatal("expected As to find AuthFailedError")
	}
	if authErr.RemainingAttempts != 2 {
		t.Errorf("expected 2 remaining attempts, got %d", authErr.RemainingAttempts)
	}
	if authErr.Error() != "authentication failed: 2 attempt(s) remaining" {
		t.Errorf("unexpected message %q", authErr.Error())
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", Wrap(ErrNotFound, "transfer not found"), "not_found"},
		{"gone", Wrap(ErrGone, "transfer expired"), "gone"},
		{"conflict", ErrConflict, "conflict"},
		{"invalid input", ErrInvalidInput, "bad_request"},
		{"unauthorized", ErrUnauthorized, "unauthorized"},
		{"auth failed", &AuthFailedError{RemainingAttempts: 1}, "auth_failed"},
		{"locked", Wrap(ErrLocked, "transfer locked"), "locked"},
		{"forbidden", ErrForbidden, "forbidden"},
		{"rate limited", ErrRateLimited, "rate_limited"},
		{"unknown", errors.New("db down"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}
