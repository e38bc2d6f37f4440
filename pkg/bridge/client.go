package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the default backend request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBody caps how much of a backend response is read back.
const maxResponseBody = 1 << 20 // 1 MiB

// Response is a backend reply to a forwarded payload.
type Response struct {
	// StatusCode is the backend HTTP status.
	StatusCode int

	// Body is the verbatim response body.
	Body []byte
}

// OK reports whether the backend answered with a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Forwarder delivers validated payloads to the backend.
type Forwarder interface {
	// Forward POSTs payload for deviceID and returns the backend
	// response. A non-nil error means the payload did not arrive
	// (network failure or timeout); a non-2xx Response means it did.
	Forward(ctx context.Context, deviceID string, payload []byte) (*Response, error)
}

// Client forwards payloads to ${base}/device/${device_id}/data.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a forwarder for the given backend base URL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}, nil
}

// Forward POSTs payload to the backend's per-device data endpoint.
func (c *Client) Forward(ctx context.Context, deviceID string, payload []byte) (*Response, error) {
	endpoint := c.base + "/device/" + url.PathEscape(deviceID) + "/data"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// Compile-time interface satisfaction check.
var _ Forwarder = (*Client)(nil)
