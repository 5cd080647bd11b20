package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("amount", "must be positive"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("place order: %w", NewValidationError("price", "")), http.StatusBadRequest},
		{"user not found", ErrUserNotFound, http.StatusNotFound},
		{"not found", fmt.Errorf("select: %w", ErrNotFound), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"unrecognized", &UnrecognizedCommandError{Command: "x"}, http.StatusNotFound},
		{"upstream", &UpstreamExchangeError{Method: "fetchBalance", ExchangeID: "demo", Err: errors.New("timeout")}, http.StatusBadRequest},
		{"decryption", &DecryptionError{Err: errors.New("bad tag")}, http.StatusInternalServerError},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserNotFoundIsNotFound(t *testing.T) {
	if !errors.Is(ErrUserNotFound, ErrNotFound) {
		t.Fatal("ErrUserNotFound must wrap ErrNotFound")
	}
}

func TestUserMessageHidesInternalDetail(t *testing.T) {
	msg := UserMessage(&DecryptionError{Err: errors.New("cipher: message authentication failed")})
	if strings.Contains(msg, "cipher") {
		t.Errorf("internal detail leaked: %q", msg)
	}

	msg = UserMessage(fmt.Errorf("wrap: %w", NewValidationError("amount", "must be a positive number")))
	if !strings.Contains(msg, "amount") || !strings.Contains(msg, "Must be a positive number") {
		t.Errorf("validation message = %q", msg)
	}

	msg = UserMessage(&UpstreamExchangeError{Method: "createOrder", ExchangeID: "demo", Err: errors.New("insufficient funds")})
	if !strings.Contains(msg, "insufficient funds") {
		t.Errorf("upstream reason missing: %q", msg)
	}
}
