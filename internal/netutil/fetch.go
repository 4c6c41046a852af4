package netutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxFetchBytes bounds response bodies read by Fetch. Extraction targets
// are HTML pages or JSON API payloads, never media bytes.
const maxFetchBytes = 10 << 20 // 10 MB

// HTTPStatusError reports a non-2xx response from an upstream.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Fetch executes a GET with the given headers and returns the body.
// Non-2xx statuses produce an *HTTPStatusError so callers can classify
// blocks (403/429) separately from transport failures.
func Fetch(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("netutil: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("netutil: read body: %w", err)
	}
	return body, nil
}
