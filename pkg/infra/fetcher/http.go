package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultUserAgent mimics a desktop browser; some paper servers refuse
	// requests from unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	DefaultAccept    = "application/pdf, application/octet-stream"
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBytes  = 64 << 20
)

// HTTP fetches documents with a plain GET request
type HTTP struct {
	client    *http.Client
	userAgent string
	accept    string
	timeout   time.Duration
	maxBytes  int64
}

// HTTPOption is a functional option for HTTP fetcher
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(x *HTTP) {
		x.client = client
	}
}

// WithUserAgent sets User-Agent header of requests
func WithUserAgent(ua string) HTTPOption {
	return func(x *HTTP) {
		x.userAgent = ua
	}
}

// WithAccept sets Accept header of requests
func WithAccept(accept string) HTTPOption {
	return func(x *HTTP) {
		x.accept = accept
	}
}

// WithTimeout sets the deadline of a single fetch, including reading the body
func WithTimeout(d time.Duration) HTTPOption {
	return func(x *HTTP) {
		x.timeout = d
	}
}

// WithMaxBytes limits size of a fetched document
func WithMaxBytes(n int64) HTTPOption {
	return func(x *HTTP) {
		x.maxBytes = n
	}
}

// NewHTTP creates a new HTTP fetcher
func NewHTTP(opts ...HTTPOption) *HTTP {
	x := &HTTP{
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
		accept:    DefaultAccept,
		timeout:   DefaultTimeout,
		maxBytes:  DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Fetch downloads url and returns the whole response body
func (x *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", url))
	}
	req.Header.Set("Accept", x.accept)
	req.Header.Set("User-Agent", x.userAgent)

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request", goerr.V("url", url))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.New("unexpected status code",
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode))
	}

	return readAll(resp.Body, x.maxBytes, url)
}

func readAll(r io.Reader, maxBytes int64, url string) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read document", goerr.V("url", url))
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read document", goerr.V("url", url))
	}
	if int64(len(data)) > maxBytes {
		return nil, goerr.New("document is too large",
			goerr.V("url", url),
			goerr.V("max_bytes", maxBytes))
	}
	return data, nil
}
