package sessions

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"analysis-backend/internal/llm"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

var _ net.Error = timeoutErr{}

func TestShouldRetryLLM(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"rate limited", &llm.StatusError{Provider: "openai", StatusCode: 429}, true},
		{"overloaded", &llm.StatusError{Provider: "anthropic", StatusCode: 529}, true},
		{"bad request", &llm.StatusError{Provider: "openai", StatusCode: 400}, false},
		{"unauthorized", fmt.Errorf("wrapped: %w", &llm.StatusError{Provider: "gemini", StatusCode: 401}), false},
		{"net timeout", timeoutErr{}, true},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"other", errors.New("invalid json"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetryLLM(tt.err); got != tt.want {
				t.Fatalf("shouldRetryLLM(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type flakyClient struct {
	errs  []error
	calls int
}

func (f *flakyClient) RunUnit(ctx context.Context, in llm.UnitInput) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	return "ok", nil
}

func TestRetryingClientRetriesTransientErrors(t *testing.T) {
	base := &flakyClient{errs: []error{
		&llm.StatusError{Provider: "openai", StatusCode: 502},
		errors.New("connection refused"),
	}}
	client := newRetryingClient(base, "openai", "s1", 3, time.Millisecond)

	out, err := client.RunUnit(context.Background(), llm.UnitInput{})
	if err != nil {
		t.Fatalf("RunUnit: %v", err)
	}
	if out != "ok" || base.calls != 3 {
		t.Fatalf("expected success on third call, got %q after %d calls", out, base.calls)
	}
}

func TestRetryingClientGivesUpWithLastError(t *testing.T) {
	last := &llm.StatusError{Provider: "openai", StatusCode: 503, Message: "third"}
	base := &flakyClient{errs: []error{
		&llm.StatusError{Provider: "openai", StatusCode: 500, Message: "first"},
		&llm.StatusError{Provider: "openai", StatusCode: 500, Message: "second"},
		last,
	}}
	client := newRetryingClient(base, "openai", "s1", 3, time.Millisecond)

	_, err := client.RunUnit(context.Background(), llm.UnitInput{})
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) || statusErr.Message != "third" {
		t.Fatalf("expected last error, got %v", err)
	}
	if !errors.Is(err, llm.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", base.calls)
	}
}

func TestRetryingClientDoesNotRetryPermanentErrors(t *testing.T) {
	base := &flakyClient{errs: []error{&llm.StatusError{Provider: "openai", StatusCode: 401}}}
	client := newRetryingClient(base, "openai", "s1", 3, time.Millisecond)

	if _, err := client.RunUnit(context.Background(), llm.UnitInput{}); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("expected a single call, got %d", base.calls)
	}
}
