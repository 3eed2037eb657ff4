// Package provider implements the supply-side price sources queried by the
// aggregator: Solvex, TCT and Open Greece.  Each client normalises its API's
// response shape into domain.ProviderPrice quotes.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const dateFormat = "2006-01-02"

// client is the shared HTTP plumbing behind every provider.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) client {
	return client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// doGet performs an HTTP GET and returns the body bytes, or an error for any
// non-200 status code.
func (c client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "meridian-yield/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
