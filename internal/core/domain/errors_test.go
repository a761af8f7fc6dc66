package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ErrorMessage
		expected string
	}{
		{
			name:     "error without details",
			err:      NewErrorMessage(17, "User not found", 404),
			expected: "[17] User not found",
		},
		{
			name:     "error with details",
			err:      NewErrorMessage(14, "User invalid input", 400).WithDetails("username is required"),
			expected: "[14] User invalid input: username is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorMessage_Is(t *testing.T) {
	// Same code matches regardless of message or details.
	if !errors.Is(ErrUserNotFound.WithDetails("u_abc"), ErrUserNotFound) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(ErrUserNotFound, ErrWorldNotFound) {
		t.Error("errors.Is should not match different codes")
	}
	if errors.Is(ErrUserNotFound, fmt.Errorf("plain error")) {
		t.Error("errors.Is should not match non-ErrorMessage")
	}
}

func TestErrorMessage_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrNoResponseFromServer.WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if errors.Unwrap(ErrNoResponseFromServer) != nil {
		t.Error("Unwrap() should return nil without a cause")
	}
}

func TestErrorMessage_WithDetails_Copies(t *testing.T) {
	detailed := ErrUserInvalidInput.WithDetails("bad username")
	if ErrUserInvalidInput.Details != "" {
		t.Error("WithDetails must not mutate the sentinel")
	}
	if detailed.Code != ErrUserInvalidInput.Code || detailed.Status != ErrUserInvalidInput.Status {
		t.Error("WithDetails should preserve code and status")
	}
}

func TestErrorMessage_JSON(t *testing.T) {
	// Details and cause stay server-side; only the wire fields encode.
	raw, err := json.Marshal(ErrUserNotFound.WithDetails("secret detail").WithCause(fmt.Errorf("db down")))
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if decoded["code"] != float64(17) {
		t.Errorf("code = %v, want 17", decoded["code"])
	}
	if _, ok := decoded["details"]; ok {
		t.Error("details must not be serialized")
	}
}

func TestAsErrorMessage(t *testing.T) {
	wrapped := fmt.Errorf("lookup failed: %w", ErrUserNotFound)
	em, ok := AsErrorMessage(wrapped)
	if !ok {
		t.Fatal("AsErrorMessage should find wrapped ErrorMessage")
	}
	if em.Code != 17 {
		t.Errorf("Code = %d, want 17", em.Code)
	}

	if _, ok := AsErrorMessage(fmt.Errorf("plain")); ok {
		t.Error("AsErrorMessage should fail for plain errors")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(ErrRetryWithNewGateway); got != 10 {
		t.Errorf("CodeOf() = %d, want 10", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != 0 {
		t.Errorf("CodeOf(plain) = %d, want 0", got)
	}
}
