package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const (
	defaultBaseURL  = "https://s.jina.ai"
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 2 << 20
	maxErrorBodyLen = 512
)

// Config holds search API configuration
type Config struct {
	APIKey             string
	BaseURL            string
	Timeout            time.Duration
	EnableDebugLogging bool
}

// JinaClient queries the Jina search API for product pages
type JinaClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// jinaResponse is the JSON envelope returned by the search endpoint
type jinaResponse struct {
	Code int `json:"code"`
	Data []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
	} `json:"data"`
}

// NewJinaClient creates a new search client
func NewJinaClient(config Config) *JinaClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	return &JinaClient{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		apiKey:      config.APIKey,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(3), 5),
		debug:       config.EnableDebugLogging,
	}
}

// Method implements domain.SearchProvider
func (c *JinaClient) Method() domain.DiscoveryMethod {
	return domain.DiscoverySearchAPI
}

// Search implements domain.SearchProvider. A retailer with a domain restricts
// the query with a site: operator.
func (c *JinaClient) Search(ctx context.Context, query string, retailer domain.Retailer) ([]domain.SearchHit, error) {
	if retailer.Domain != "" {
		query = fmt.Sprintf("site:%s %s", retailer.Domain, query)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrSearchFailed, err)
	}

	params := url.Values{}
	params.Set("q", query)
	reqURL := fmt.Sprintf("%s/?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Respond-With", "no-content")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[SEARCH] Request error for %q: %v", query, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		log.Printf("[SEARCH] API error - Status: %d, Body: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrRateLimited)
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrSearchFailed, resp.StatusCode)
	}

	var decoded jinaResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrSearchFailed, err)
	}

	hits := make([]domain.SearchHit, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		if item.URL == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{URL: item.URL, Title: item.Title})
	}

	if c.debug {
		log.Printf("[SEARCH] %q returned %d hits", query, len(hits))
	}
	return hits, nil
}
