package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "RedirectCounter/1.0"

// Config holds settings for the HTTP client shared by one run.
type Config struct {
	Timeout   time.Duration
	Headers   http.Header
	UserAgent string
	Retries   int
}

// baseBackoff is the wait before the first retry. It doubles per attempt.
const baseBackoff = 100 * time.Millisecond

// retryTransport sets the run's headers on every outgoing request and
// repeats attempts that hit a transport error or a 5xx status.
type retryTransport struct {
	next      http.RoundTripper
	headers   http.Header
	userAgent string
	retries   int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := t.next.RoundTrip(t.prepare(req))
		if !retryable(resp, err) || attempt >= t.retries {
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
		}
		if err := sleep(req.Context(), baseBackoff<<attempt); err != nil {
			return nil, err
		}
	}
}

// prepare returns a copy of req with a fresh body and the configured
// headers applied. The caller's request is never modified.
func (t *retryTransport) prepare(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			out.Body = body
		}
	}
	for name, values := range t.headers {
		out.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.userAgent)
	}
	if out.Header.Get("Accept") == "" {
		out.Header.Set("Accept", "application/json")
	}
	return out
}

func retryable(resp *http.Response, err error) bool {
	return err != nil || resp.StatusCode >= http.StatusInternalServerError
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// New returns a configured HTTP client. A zero Retries value issues every
// request exactly once.
func New(cfg Config) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	return &http.Client{
		Transport: &retryTransport{
			next:      transport,
			headers:   cfg.Headers,
			userAgent: ua,
			retries:   retries,
		},
		Timeout: cfg.Timeout,
	}
}
