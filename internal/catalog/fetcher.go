// Package catalog maintains the set of tracked element sets: fetching
// raw records from a remote source per group, caching them on disk, and
// publishing parsed snapshots through an atomically swapped store.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://celestrak.org/NORAD/elements/gp.php"

// maxBodyBytes caps one group's response size. The full active catalog
// runs a few MB of text; anything near this limit is a broken source.
const maxBodyBytes = 50 * 1024 * 1024

// Fetcher retrieves raw element-set text from a CelesTrak-style endpoint,
// one HTTP GET per named group.
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher against baseURL. An empty baseURL selects
// the public CelesTrak GP endpoint.
func NewFetcher(baseURL string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// GroupURL returns the fetch URL for one group.
func (f *Fetcher) GroupURL(group string) string {
	q := url.Values{}
	q.Set("GROUP", group)
	q.Set("FORMAT", "tle")
	return f.baseURL + "?" + q.Encode()
}

// FetchGroup performs one HTTP GET for the named group and returns the
// raw response body.
func (f *Fetcher) FetchGroup(ctx context.Context, group string) ([]byte, error) {
	u := f.GroupURL(group)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching group %q: %w", group, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, u)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("group %q response exceeds %d byte limit", group, maxBodyBytes)
	}

	return body, nil
}
