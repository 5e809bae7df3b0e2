// Package httpclient builds the shared HTTP clients used by the scraping
// and notification services.
package httpclient

import (
	"crypto/tls"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default per-call HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of attempts for retryable failures.
	DefaultRetries = 3
)

// defaultHeaders are applied to every request unless already set.
// KIND serves different markup to non-browser user agents.
var defaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
}

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// New creates an HTTP client with fixed browser headers, a bounded retry
// policy for 429/5xx and transport errors, and a relaxed TLS configuration
// for compatibility with older endpoints.
func New(timeout time.Duration, userAgent string) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	// KIND document hosts still negotiate legacy cipher suites.
	base.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS10,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &retryTransport{
			base:      base,
			userAgent: userAgent,
			retries:   DefaultRetries,
			backoff:   1 * time.Second,
		},
	}
}

// retryTransport applies fixed headers and retries transient failures.
type retryTransport struct {
	base      http.RoundTripper
	userAgent string
	retries   int
	backoff   time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range defaultHeaders {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	var resp *http.Response
	var err error

	for attempt := 0; attempt < t.retries; attempt++ {
		if attempt > 0 {
			// Rewind the body for the retry; requests built from a
			// bytes/strings reader carry GetBody automatically.
			if req.Body != nil {
				if req.GetBody == nil {
					return resp, err
				}
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return resp, err
				}
				req.Body = body
			}

			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(t.backoff * time.Duration(attempt)):
			}
		}

		resp, err = t.base.RoundTrip(req)
		if err != nil {
			continue
		}
		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		// Close so the connection can be reused, but keep the final
		// response readable for the caller.
		if attempt < t.retries-1 {
			resp.Body.Close()
		}
	}

	return resp, err
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
