// Package cms provides a client for the complaint-management API, the
// external collaborator that owns complaint data. The server is expected to
// enforce row-level ward/role scoping before data leaves it; this client
// only normalizes shapes and maps transport failures onto the export error
// taxonomy.
package cms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/models"
)

const (
	DefaultBaseURL   = "http://localhost:4005"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client fetches complaint snapshots from the CMS API.
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithServiceToken sets the server-to-server bearer token
func WithServiceToken(token string) ClientOption {
	return func(c *Client) {
		c.serviceToken = token
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout ceiling for one fetch
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client (tests)
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a CMS API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     common.NewDefaultLogger(),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchComplaints retrieves complaints matching the filters, scoped to the
// requesting role/ward and capped at limit rows server-side.
// 401/403 map to permission errors; network failures and timeouts map to
// transient errors; a success=false envelope is treated as transient too.
func (c *Client) FetchComplaints(ctx context.Context, filters models.ExportFilters, role models.Role, ward string, limit int) ([]models.ComplaintRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewTransientError("rate limiter interrupted", err)
	}

	params := url.Values{}
	if filters.From != "" {
		params.Set("dateFrom", filters.From)
	}
	if filters.To != "" {
		params.Set("dateTo", filters.To)
	}
	if filters.Ward != "" && filters.Ward != "all" {
		params.Set("ward", filters.Ward)
	}
	if filters.Type != "" && filters.Type != "all" {
		params.Set("type", filters.Type)
	}
	if filters.Status != "" && filters.Status != "all" {
		params.Set("status", filters.Status)
	}
	if filters.Priority != "" && filters.Priority != "all" {
		params.Set("priority", filters.Priority)
	}
	params.Set("role", string(role))
	if ward != "" {
		params.Set("scopeWard", ward)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	endpoint := fmt.Sprintf("%s/api/complaints/export?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build CMS request: %w", err)
	}
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, models.NewTransientError("CMS data fetch timed out", err)
		}
		return nil, models.NewTransientError("CMS data fetch failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, models.NewPermissionError(fmt.Sprintf("CMS rejected the request (status %d) - session may have expired", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, models.NewTransientError(fmt.Sprintf("CMS returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewTransientError("failed to read CMS response", err)
	}

	records, err := decodeEnvelope(body)
	if err != nil {
		return nil, models.NewTransientError("CMS response had an unexpected shape", err)
	}

	c.logger.Debug().
		Int("records", len(records)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("CMS complaints fetched")

	return records, nil
}

// Ping checks reachability of the CMS health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("CMS health returned status %d", resp.StatusCode)
	}
	return nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
