package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "nil", err: nil, transient: false},
		{name: "explicit transient", err: NewTransientError(errors.New("x"), 503), transient: true},
		{name: "wrapped transient", err: fmt.Errorf("outer: %w", NewTransientError(errors.New("x"), 0)), transient: true},
		{name: "rate limit message", err: errors.New("api error: rate limit exceeded"), transient: true},
		{name: "overloaded message", err: errors.New("anthropic: overloaded_error"), transient: true},
		{name: "status 529", err: errors.New("unexpected status 529"), transient: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), transient: true},
		{name: "plain error", err: errors.New("invalid request"), transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.transient)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected status %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected status %d to not be transient", code)
		}
	}
}
