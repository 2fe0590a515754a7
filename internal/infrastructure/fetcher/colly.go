package fetcher

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const (
	defaultTimeout            = 8 * time.Second
	defaultSoftBlockMinLength = 20000
	defaultUserAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxPageSize               = 8 << 20
)

// softBlockMarkers appear on captcha and bot-check interstitials
var softBlockMarkers = []string{
	"captcha",
	"robot check",
	"are you a robot",
	"not a robot",
	"verify you are human",
	"unusual traffic",
	"press & hold",
	"access denied",
	"request blocked",
}

// Config holds fetcher configuration
type Config struct {
	Timeout            time.Duration
	UserAgent          string
	SoftBlockMinLength int
	EnableDebugLogging bool
}

// Fetcher retrieves product pages with a browser-like identity
type Fetcher struct {
	config Config
}

// New creates a Fetcher, filling unset config values with defaults
func New(config Config) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.SoftBlockMinLength <= 0 {
		config.SoftBlockMinLength = defaultSoftBlockMinLength
	}
	return &Fetcher{config: config}
}

// Fetch implements domain.PageFetcher. Non-2xx responses, transport errors
// and soft-block pages are all reported as errors so the caller moves on to
// the next candidate.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*domain.RawPage, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(maxPageSize),
	)
	c.SetRequestTimeout(f.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		setBrowserHeaders(r.Headers)
	})

	var (
		page     *domain.RawPage
		fetchErr error
	)

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			fetchErr = fmt.Errorf("%w: status %d", domain.ErrFetchFailed, r.StatusCode)
			return
		}
		content := string(r.Body)
		page = &domain.RawPage{
			URL:        r.Request.URL.String(),
			FetchedAt:  time.Now(),
			Content:    content,
			Title:      extractTitle(content),
			StatusCode: r.StatusCode,
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	})

	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	c.Wait()

	if fetchErr != nil {
		log.Printf("[FETCH] %s failed: %v", pageURL, fetchErr)
		return nil, fetchErr
	}
	if page == nil {
		return nil, fmt.Errorf("%w: no response", domain.ErrFetchFailed)
	}
	if marker, blocked := f.softBlocked(page.Content); blocked {
		log.Printf("[FETCH] %s soft-blocked (%q, %d bytes)", pageURL, marker, len(page.Content))
		return nil, fmt.Errorf("%w: %q on a %d byte page", domain.ErrSoftBlocked, marker, len(page.Content))
	}

	if f.config.EnableDebugLogging {
		log.Printf("[FETCH] %s -> %d (%d bytes, title %q)", pageURL, page.StatusCode, len(page.Content), page.Title)
	}
	return page, nil
}

// softBlocked reports a block page: a bot-check marker on a page too short to
// be a real product page.
func (f *Fetcher) softBlocked(content string) (string, bool) {
	if len(content) >= f.config.SoftBlockMinLength {
		return "", false
	}
	lower := strings.ToLower(content)
	for _, marker := range softBlockMarkers {
		if strings.Contains(lower, marker) {
			return marker, true
		}
	}
	return "", false
}

func setBrowserHeaders(h *http.Header) {
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")
}

// extractTitle returns the text of the first <title> element
func extractTitle(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if find(child) {
				return true
			}
		}
		return false
	}
	find(doc)
	return title
}
