package synology

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fveres/dstui/internal/logging"
)

// DefaultTimeout bounds every request so a dead server surfaces as an
// error instead of a hung interface.
const DefaultTimeout = 10 * time.Second

// Transport issues raw HTTP(S) requests against the Web API. It owns no
// session state; callers inject the session token as a request parameter.
// Retry policy lives in callers, not here.
type Transport struct {
	baseURL    string
	httpClient *http.Client
}

// NewTransport validates the base URL and builds the HTTP client.
// When verifyCerts is false the transport accepts any certificate; most
// DiskStations ship with a self-signed one. The weakened integrity
// guarantee is logged so the operator is warned.
func NewTransport(baseURL string, verifyCerts bool, timeout time.Duration) (*Transport, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid server address %q: scheme must be http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid server address %q: missing host", baseURL)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	if !verifyCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		logging.Warn("TLS certificate verification disabled - connection integrity is not guaranteed",
			zap.String("server", parsed.Host),
		)
	}

	return &Transport{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
	}, nil
}

// BaseURL returns the configured server base URL
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Get performs a GET request against an API path (e.g. "webapi/query.cgi")
// and returns the raw response body. HTTP-level failures are mapped to the
// error taxonomy; envelope-level errors are the caller's business.
func (t *Transport) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s", t.baseURL, strings.TrimPrefix(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewTransportError("failed to create request", err)
	}
	req.URL.RawQuery = params.Encode()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, NewTransportError("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to body read
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewRateLimitedError()
	case resp.StatusCode >= 500:
		return nil, NewUnavailableError("server cannot serve requests", resp.StatusCode)
	default:
		return nil, &Error{
			Kind:    KindServerError,
			Message: fmt.Sprintf("unexpected status code %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError("failed to read response body", err)
	}

	return body, nil
}
