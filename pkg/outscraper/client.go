// Package outscraper is a minimal client for the Outscraper places search
// API. Searches run asynchronously on the vendor side: Search returns a
// request id, GetRequest reports the job's status and, once finished, its
// results.
package outscraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Outscraper API.
const defaultBaseURL = "https://api.app.outscraper.com"

// Client defines the Outscraper API operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	GetRequest(ctx context.Context, id string) (*RequestResult, error)
}

// SearchRequest holds the parameters for GET /maps/search-v3. Execution is
// always requested asynchronously; the response carries a request id to poll.
type SearchRequest struct {
	Query       string
	Limit       int
	Language    string
	Region      string
	Location    string
	Coordinates string
	Enrichment  string
}

// SearchResponse is the response from an async search submission.
type SearchResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	ResultsLocation string `json:"results_location"`
}

// RequestResult is the response from GET /requests/{id}. Data is kept opaque
// so callers can echo the vendor payload through unmodified.
type RequestResult struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// APIError is returned when the vendor responds with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("outscraper: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter throttles outbound requests.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Outscraper client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("query", req.Query)
	q.Set("async", "true")
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Language != "" {
		q.Set("language", req.Language)
	}
	if req.Region != "" {
		q.Set("region", req.Region)
	}
	if req.Location != "" {
		q.Set("location", req.Location)
	}
	if req.Coordinates != "" {
		q.Set("coordinates", req.Coordinates)
	}
	if req.Enrichment != "" {
		q.Set("enrichment", req.Enrichment)
	}

	var resp SearchResponse
	if err := c.get(ctx, "/maps/search-v3?"+q.Encode(), &resp); err != nil {
		return nil, eris.Wrap(err, "outscraper: submit search")
	}
	return &resp, nil
}

func (c *httpClient) GetRequest(ctx context.Context, id string) (*RequestResult, error) {
	var resp RequestResult
	if err := c.get(ctx, "/requests/"+url.PathEscape(id), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("outscraper: get request %s", id))
	}
	return &resp, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "await rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
