package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benmeehan/location-sender/internal/constants"
)

// Response bodies beyond this size are truncated and end in truncatedMarker.
const maxBodySize = 64 << 10

const truncatedMarker = "..."

// HTTPTransport posts payloads to the device telemetry endpoint.
type HTTPTransport struct {
	url    string
	client *http.Client
}

// NewHTTPTransport creates a transport posting to {server}/api/v1/{token}/telemetry.
func NewHTTPTransport(server, token string, timeout time.Duration) *HTTPTransport {
	return NewHTTPTransportWithClient(server, token, &http.Client{Timeout: timeout})
}

// NewHTTPTransportWithClient is NewHTTPTransport with a caller supplied client.
func NewHTTPTransportWithClient(server, token string, client *http.Client) *HTTPTransport {
	return &HTTPTransport{
		url:    TelemetryURL(server, token),
		client: client,
	}
}

// TelemetryURL returns the per-device telemetry endpoint.
func TelemetryURL(server, token string) string {
	return strings.TrimRight(server, "/") + fmt.Sprintf(constants.TelemetryPath, url.PathEscape(token))
}

// Deliver posts payload as JSON. Any 2xx answer is a success.
func (t *HTTPTransport) Deliver(ctx context.Context, payload []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post telemetry: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxBodySize {
		body = append(body[:maxBodySize], truncatedMarker...)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
