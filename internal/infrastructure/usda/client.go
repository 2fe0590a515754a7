package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const (
	maxAttempts     = 3
	maxErrorBodyLen = 512
	maxBodyLen      = 4 << 20
)

// Client handles communication with the USDA FoodData Central API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new USDA API client
func NewClient(apiKey, baseURL string) *Client {
	// USDA allows 1000 requests per hour
	// rate.Limit is requests per second, so 1000/3600 ≈ 0.278 requests/sec
	limiter := rate.NewLimiter(rate.Limit(0.278), 10) // burst of 10 requests

	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
	}
}

// SetDebug enables or disables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...any) {
	if c.debug {
		log.Printf("[USDA] "+format, args...)
	}
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes of a response body
func readLimitedBody(body io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, limit))
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "AllergyAware/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUSDAAPIFailure, err)
	}
	return resp, nil
}

// sleep waits for d or until ctx ends
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SearchFoods searches branded foods. A barcode is a valid query: USDA indexes
// gtinUpc for branded records.
func (c *Client) SearchFoods(ctx context.Context, query string) (*domain.USDASearchResponse, error) {
	c.debugLog("SearchFoods called with query: %q", query)

	endpoint := fmt.Sprintf("%s/v1/foods/search", c.baseURL)
	params := url.Values{}
	params.Add("query", query)
	params.Add("api_key", c.apiKey)
	params.Add("dataType", "Branded")
	params.Add("pageSize", "10")

	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())
	if _, err := url.Parse(reqURL); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, exponentialBackoff(attempt-1)); err != nil {
				return nil, err
			}
		}
		if err := c.rateLimiter.Wait(ctx); err != nil {
			log.Printf("[USDA] Rate limiter error: %v", err)
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			log.Printf("[USDA] Request error (attempt %d): %v", attempt, err)
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		body, readErr := readLimitedBody(resp.Body, maxBodyLen)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrUSDAAPIFailure, readErr)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			log.Printf("[USDA] API error (attempt %d) - Status: %d, Body: %s",
				attempt, resp.StatusCode, truncate(body, maxErrorBodyLen))
			switch {
			case resp.StatusCode == http.StatusNotFound:
				return nil, domain.ErrProductNotFound
			case resp.StatusCode == http.StatusTooManyRequests:
				lastErr = fmt.Errorf("%w: %w", domain.ErrUSDAAPIFailure, domain.ErrRateLimited)
				continue
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return nil, fmt.Errorf("%w: status %d", domain.ErrUSDAAPIFailure, resp.StatusCode)
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrUSDAAPIFailure, resp.StatusCode)
			continue
		}

		var searchResp domain.USDASearchResponse
		if err := json.Unmarshal(body, &searchResp); err != nil {
			log.Printf("[USDA] JSON decode error: %v", err)
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		if len(searchResp.Foods) == 0 {
			c.debugLog("No foods found for query: %q", query)
			return nil, domain.ErrProductNotFound
		}

		c.debugLog("Found %d foods for query: %q", len(searchResp.Foods), query)
		return &searchResp, nil
	}

	log.Printf("[USDA] All retries failed for query: %q", query)
	return nil, lastErr
}

// GetFoodDetails retrieves the full record for a specific food by FDC ID
func (c *Client) GetFoodDetails(ctx context.Context, fdcID string) (*domain.USDAFood, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/food/%s", c.baseURL, url.PathEscape(fdcID))
	params := url.Values{}
	params.Add("api_key", c.apiKey)

	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := readLimitedBody(resp.Body, maxErrorBodyLen)
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrUSDAAPIFailure, resp.StatusCode, string(body))
	}

	var food domain.USDAFood
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyLen)).Decode(&food); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &food, nil
}

// LookupByBarcode finds the branded record whose GTIN/UPC equals barcode and
// returns its ingredient statement as a database source.
func (c *Client) LookupByBarcode(ctx context.Context, barcode string) (*domain.Source, error) {
	want := NormalizeGTIN(barcode)
	if want == "" {
		return nil, fmt.Errorf("%w: empty barcode", domain.ErrInvalidRequest)
	}

	results, err := c.SearchFoods(ctx, barcode)
	if err != nil {
		return nil, err
	}

	var match *domain.USDAFood
	for i := range results.Foods {
		if NormalizeGTIN(results.Foods[i].GtinUpc) == want {
			match = &results.Foods[i]
			break
		}
	}
	if match == nil {
		c.debugLog("No GTIN match for %s among %d results", barcode, len(results.Foods))
		return nil, domain.ErrProductNotFound
	}

	if match.Ingredients == "" {
		detail, err := c.GetFoodDetails(ctx, strconv.Itoa(match.FdcID))
		if err != nil {
			return nil, err
		}
		match = detail
	}
	if match.Ingredients == "" {
		return nil, fmt.Errorf("%w: record %d has no ingredient statement", domain.ErrProductNotFound, match.FdcID)
	}

	log.Printf("[USDA] Barcode %s matched FDC %d (%s)", barcode, match.FdcID, match.Description)
	return MapToSource(match), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
