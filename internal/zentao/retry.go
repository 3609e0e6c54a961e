package zentao

import (
	"context"
	"io"
	"net/http"
	"time"

	"zentaohelper/internal/logging"
)

// retryableStatus lists the gateway/rate-limit statuses worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// retryTransport replays requests on transient failures with exponential
// backoff. Callers only ever see the final attempt.
type retryTransport struct {
	next       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func newRetryTransport(next http.RoundTripper, maxRetries int, backoff time.Duration) *retryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &retryTransport{next: next, maxRetries: maxRetries, backoff: backoff}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.Body != nil && req.Body != http.NoBody {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req = req.Clone(req.Context())
			req.Body = body
		}

		resp, err := t.next.RoundTrip(req)
		if attempt >= t.maxRetries || !t.shouldRetry(req, resp, err) {
			return resp, err
		}

		delay := t.backoff << attempt
		if resp != nil {
			logging.APIWarn("%s %s returned %d, retry %d/%d in %v", req.Method, req.URL.Path, resp.StatusCode, attempt+1, t.maxRetries, delay)
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		} else {
			logging.APIWarn("%s %s failed (%v), retry %d/%d in %v", req.Method, req.URL.Path, err, attempt+1, t.maxRetries, delay)
		}
		if err := sleep(req.Context(), delay); err != nil {
			return nil, err
		}
	}
}

func (t *retryTransport) shouldRetry(req *http.Request, resp *http.Response, err error) bool {
	if req.Context().Err() != nil {
		return false
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return false
	}
	if err != nil {
		return true
	}
	return retryableStatus[resp.StatusCode]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
