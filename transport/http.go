package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pithecene-io/xray/iox"
)

// CompanyPath is the backend route prefix; the escaped company name is
// appended as the last path segment.
const CompanyPath = "/api/company/"

// DefaultConnectTimeout bounds dialing the backend.
const DefaultConnectTimeout = 10 * time.Second

// maxErrorBody caps how much of a non-2xx response body is kept.
const maxErrorBody = 1024

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	// Body is the start of the response body, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// HTTPClient opens report streams against the scoring backend.
// There is no retry: a failed request is surfaced to the caller once.
type HTTPClient struct {
	// BaseURL is the backend origin, e.g. http://localhost:8000.
	BaseURL string
	// Headers are added to every request.
	Headers map[string]string
	// ChunkSize bounds each chunk read from the body.
	ChunkSize int
	// Client performs the request. Defaults to NewHTTPClient's client.
	Client *http.Client
}

// NewHTTPClient creates a client whose only timeout is the connect timeout.
// Report streams can legitimately stay open for minutes, so no overall
// request deadline is set.
func NewHTTPClient(baseURL string, headers map[string]string, connectTimeout time.Duration) *HTTPClient {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = connectTimeout
	return &HTTPClient{
		BaseURL: baseURL,
		Headers: headers,
		Client:  &http.Client{Transport: tr},
	}
}

// URL returns the request URL for a company.
func (c *HTTPClient) URL(company string) (string, error) {
	base, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid backend url %q: scheme and host required", c.BaseURL)
	}
	return base.String() + CompanyPath + url.PathEscape(company), nil
}

// Open issues the report request and returns the streaming body as a
// ChunkSource. The caller must Close the source.
func (c *HTTPClient) Open(ctx context.Context, company string) (ChunkSource, error) {
	target, err := c.URL(company)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson, application/json")
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	client := c.Client
	if client == nil {
		client = NewHTTPClient(c.BaseURL, nil, 0).Client
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer iox.DrainClose(resp.Body)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return NewReaderSource(resp.Body, c.ChunkSize), nil
}
