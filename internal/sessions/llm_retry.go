package sessions

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"analysis-backend/internal/llm"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/telemetry"
)

const (
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 300 * time.Millisecond
)

// retryingClient retries transient provider failures with exponential
// backoff. Only the last error is surfaced.
type retryingClient struct {
	base      llm.Client
	provider  string
	sessionID string
	attempts  uint
	delay     time.Duration
}

func newRetryingClient(base llm.Client, provider, sessionID string, attempts uint, delay time.Duration) llm.Client {
	if attempts == 0 {
		attempts = defaultMaxAttempts
	}
	if delay <= 0 {
		delay = defaultRetryBaseDelay
	}
	return retryingClient{
		base:      base,
		provider:  provider,
		sessionID: sessionID,
		attempts:  attempts,
		delay:     delay,
	}
}

func (r retryingClient) RunUnit(ctx context.Context, input llm.UnitInput) (string, error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderCallMs(metrics.SinceMillis(start)) }()

	return retry.DoWithData(
		func() (string, error) { return r.base.RunUnit(ctx, input) },
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(shouldRetryLLM),
		retry.OnRetry(func(n uint, err error) {
			metrics.IncProviderRetries()
			telemetry.Warn("llm.retry", map[string]any{
				"attempt":    n + 1,
				"provider":   r.provider,
				"session_id": r.sessionID,
				"request_id": requestIDFromContext(ctx),
				"phase":      input.Phase,
				"error":      sanitizeError(err),
			})
		}),
	)
}

func shouldRetryLLM(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof")
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > 300 {
		msg = msg[:300] + "…"
	}
	return msg
}
