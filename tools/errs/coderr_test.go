package errs

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestCodeErrorIsMatchesByCode(t *testing.T) {
	err := ErrUserNotFound.WrapMsg("lookup", "id", "u1")

	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("errors.Is should match wrapped code error: %v", err)
	}
	if errors.Is(err, ErrArgs) {
		t.Fatalf("errors.Is matched a different code")
	}
	ce, ok := As(err)
	if !ok {
		t.Fatalf("As did not find the code error")
	}
	if ce.Detail != "lookup, id=u1" {
		t.Errorf("detail = %q", ce.Detail)
	}
}

func TestWithDetailAppends(t *testing.T) {
	e := ErrArgs.WithDetail("a").WithDetail("b")
	if e.Detail != "a, b" {
		t.Errorf("detail = %q, want %q", e.Detail, "a, b")
	}
	if !strings.HasPrefix(e.Error(), "400 ArgsError") {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"code error", ErrUsernameTaken.Wrap(), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped plain", WrapMsg(errors.New("boom"), "ctx"), http.StatusInternalServerError},
		{"token", ErrTokenInvalid, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil) != nil || WrapMsg(nil, "x") != nil {
		t.Fatal("wrapping nil must stay nil")
	}
}

func TestErrPanic(t *testing.T) {
	if ErrPanic(nil) != nil {
		t.Fatal("nil recover value must not produce an error")
	}
	err := ErrPanic("kaboom")
	ce, ok := As(err)
	if !ok || ce.Code != ServerInternalError || ce.Detail != "kaboom" {
		t.Fatalf("unexpected panic error %#v", ce)
	}
}
