package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/postsense/postsense/app/database"
)

const metricsRequestTimeout = 15 * time.Second

// Metrics are the raw engagement counters fetched from a platform API
type Metrics struct {
	Likes       int `json:"likes"`
	Comments    int `json:"comments"`
	Shares      int `json:"shares"`
	Reach       int `json:"reach"`
	Impressions int `json:"impressions"`
}

// MetricsClient fetches engagement metrics for one external post
type MetricsClient interface {
	FetchMetrics(ctx context.Context, account database.ConnectedAccount, externalRef string) (*Metrics, error)
}

// HTTPMetricsClient talks to the platform metrics gateway, which fronts the
// per-platform APIs behind one uniform JSON shape.
type HTTPMetricsClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

var _ MetricsClient = (*HTTPMetricsClient)(nil)

// NewHTTPMetricsClient creates a new metrics client
func NewHTTPMetricsClient(baseURL, userAgent string) *HTTPMetricsClient {
	return &HTTPMetricsClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: metricsRequestTimeout},
	}
}

// FetchMetrics retrieves the engagement counters for one post
func (c *HTTPMetricsClient) FetchMetrics(ctx context.Context, account database.ConnectedAccount, externalRef string) (*Metrics, error) {
	url := fmt.Sprintf("%s/v1/%s/posts/%s/metrics", c.baseURL, account.Platform, externalRef)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("metrics API returned status %d: %s", resp.StatusCode, string(body))
	}

	var metrics Metrics
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		return nil, fmt.Errorf("failed to decode metrics response: %w", err)
	}

	return &metrics, nil
}
