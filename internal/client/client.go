package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/wolfeidau/hrms/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 4 << 20

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool

	// CacheDir enables the on-disk HTTP cache, empty keeps it in memory.
	CacheDir string

	// Jar carries the session cookie between requests.
	Jar http.CookieJar
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "https://hr-dashboard-backend-99kv.onrender.com/api",
		Timeout:   30 * time.Second,
		Debug:     false,
	}
}

// NewHTTPClient builds the http.Client shared by the session and resource
// clients. Every request carries the cookie jar, a request id and is traced.
func NewHTTPClient(config Config) *http.Client {
	var transport http.RoundTripper = gzhttp.Transport(http.DefaultTransport)
	transport = newCachingTransport(config.CacheDir, transport)
	transport = logger.NewTransport(transport)
	transport = &requestIDTransport{next: transport}
	transport = otelhttp.NewTransport(transport)

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
		Jar:       config.Jar,
	}
}

// requestIDTransport stamps each outgoing request with an X-Request-Id so
// backend logs can be correlated with ours.
type requestIDTransport struct {
	next http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("X-Request-Id") != "" {
		return t.next.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	req.Header.Set("X-Request-Id", uuid.NewString())

	return t.next.RoundTrip(req)
}

// api is the request plumbing shared by SessionClient and Resources.
type api struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func newAPI(serverURL string, httpClient *http.Client) (*api, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: must be an absolute http(s) URL", serverURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &api{baseURL: u, httpClient: httpClient}, nil
}

// endpoint resolves path segments below the base URL and attaches the query.
func (a *api) endpoint(query url.Values, segments ...string) string {
	u := a.baseURL.JoinPath(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Body       []byte
}

func (r *response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// do sends the request and reads the body. Only network and read failures
// are returned as errors, status codes are left to the caller.
func (a *api) do(ctx context.Context, op, method, target string, body io.Reader, contentType string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return &response{StatusCode: resp.StatusCode, Body: data}, nil
}

// doJSON encodes payload (when non-nil) as the request body.
func (a *api) doJSON(ctx context.Context, op, method, target string, payload any) (*response, error) {
	if payload == nil {
		return a.do(ctx, op, method, target, nil, "")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	return a.do(ctx, op, method, target, bytes.NewReader(data), "application/json")
}
