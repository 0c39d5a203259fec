package httpclient

import (
	"net/http"
	"time"
)

// BreakerTransport is an http.RoundTripper that routes requests through a
// circuit breaker. Transport errors and 5xx responses count as failures.
type BreakerTransport struct {
	Base    http.RoundTripper
	Breaker *CircuitBreaker
}

func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Breaker.CheckBeforeRequest(); err != nil {
		return nil, err
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		t.Breaker.OnFailure()
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		t.Breaker.OnFailure()
		return resp, nil
	}

	t.Breaker.OnSuccess()
	return resp, nil
}

// New returns an HTTP client guarded by a circuit breaker, for calling
// external services such as the OAuth token endpoint.
func New(timeout time.Duration, maxFailures int, openTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &BreakerTransport{
			Breaker: NewCircuitBreaker(maxFailures, openTimeout),
		},
	}
}
