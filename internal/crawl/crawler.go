// Package crawl implements the breadth-first GOV.UK guidance crawler:
// security-gated fetches, content-match filtering, cross-URL dedup, and
// link discovery bounded to a depth cap.
package crawl

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"guidance-rag/internal/chrome"
	"guidance-rag/internal/fingerprint"
)

// MaxDepth is the crawl's BFS depth cap (spec §4.C).
const MaxDepth = 20

// fetchTimeout bounds each individual HTTP fetch.
const fetchTimeout = 30 * time.Second

// contentMatchKeywords is the §4.C step-4 keyword set; a page is accepted
// if it contains at least contentMatchThreshold of these, case-insensitive.
var contentMatchKeywords = []string{
	"guidance", "instruction", "application", "service", "how to",
	"eligibility", "apply", "rules", "regulations",
}

const contentMatchThreshold = 3

var contentMatchURLHints = []string{"/guidance/", "/how-to", "/apply-"}

// Document is one page accepted by the content-match filter.
type Document struct {
	URL   string
	Title string
	Text  string
	Depth int
}

// Config controls crawl scheduling.
type Config struct {
	RateLimit           rate.Limit // requests per second; default 1
	UserAgent           string
	DisableContentMatch bool // testing/override escape hatch; on by default per spec
}

// DefaultConfig returns the spec's default crawl configuration: 1 req/s,
// content-match filter enabled.
func DefaultConfig() Config {
	return Config{RateLimit: 1, UserAgent: "guidance-rag-crawler/1.0"}
}

// Result is the crawl's terminal output (spec §4.C).
type Result struct {
	DiscoveredURLs    []string
	ScrapedDocuments  []Document
	FilteredCount     int
	MaxDepthReached   int
	StoppedAtDepth    int
}

// Crawler runs a single-threaded, cooperative BFS crawl job.
type Crawler struct {
	cfg     Config
	client  *http.Client
	gate    *securityGate
	limiter *rate.Limiter
	log     *zap.Logger
}

// New constructs a Crawler. log may be nil (zap.NewNop() used).
func New(cfg Config, log *zap.Logger) *Crawler {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{
		cfg:     cfg,
		client:  &http.Client{Timeout: fetchTimeout},
		gate:    newSecurityGate(),
		limiter: rate.NewLimiter(cfg.RateLimit, 1),
		log:     log,
	}
}

type queueItem struct {
	url   string
	depth int
}

// Crawl runs a BFS crawl starting from seeds, stopping at MaxDepth.
func (c *Crawler) Crawl(ctx context.Context, seeds []string) Result {
	var (
		queue       []queueItem
		visited     = make(map[string]struct{})
		contentSeen = make(map[string]struct{})
		result      Result
	)

	for _, s := range seeds {
		queue = append(queue, queueItem{url: s, depth: 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth > MaxDepth {
			if item.depth > result.StoppedAtDepth {
				result.StoppedAtDepth = item.depth
			}
			continue
		}

		dedupKey := normalizeDedupKey(item.url)
		if _, seen := visited[dedupKey]; seen {
			continue
		}
		visited[dedupKey] = struct{}{}

		if err := c.limiter.Wait(ctx); err != nil {
			break
		}

		if err := c.gate.check(ctx, item.url); err != nil {
			c.log.Debug("crawl security gate rejected url", zap.String("url", item.url), zap.Error(err))
			continue
		}

		body, err := c.fetch(ctx, item.url)
		if err != nil {
			c.log.Warn("crawl fetch failed", zap.String("url", item.url), zap.Error(err))
			continue
		}

		if item.depth > result.MaxDepthReached {
			result.MaxDepthReached = item.depth
		}

		cleanedHTML, _ := chrome.Strip(body, item.url)
		title, text := extractTitleAndText(cleanedHTML)

		if !c.contentMatches(item.url, text) {
			result.FilteredCount++
			continue
		}

		contentHash := fingerprint.ContentHash(text)
		if _, dup := contentSeen[contentHash]; dup {
			continue
		}
		contentSeen[contentHash] = struct{}{}

		result.ScrapedDocuments = append(result.ScrapedDocuments, Document{
			URL:   item.url,
			Title: title,
			Text:  text,
			Depth: item.depth,
		})
		result.DiscoveredURLs = append(result.DiscoveredURLs, item.url)

		if item.depth >= MaxDepth {
			continue
		}

		for _, link := range extractLinks(body, item.url) {
			if c.gate.check(ctx, link) != nil {
				continue
			}
			queue = append(queue, queueItem{url: link, depth: item.depth + 1})
		}
	}

	return result
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &httpStatusError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Crawler) contentMatches(rawURL, text string) bool {
	if c.cfg.DisableContentMatch {
		return true
	}
	for _, hint := range contentMatchURLHints {
		if strings.Contains(rawURL, hint) {
			return true
		}
	}

	lower := strings.ToLower(text)
	matches := 0
	for _, kw := range contentMatchKeywords {
		if strings.Contains(lower, kw) {
			matches++
		}
	}
	return matches >= contentMatchThreshold
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string {
	return "unexpected HTTP status " + http.StatusText(e.status)
}

// normalizeDedupKey strips fragment and query, keeping host+path, per
// spec §4.C step 2.
func normalizeDedupKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawQuery = ""
	return strings.ToLower(u.Host) + u.Path
}

// extractTitleAndText walks cleaned HTML for its <title> and accumulated
// text content, grounded on the teacher's extractTitle/extractTextContent
// (internal/shards/researcher/scraper.go).
func extractTitleAndText(cleanedHTML string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(cleanedHTML))
	if err != nil {
		return "", cleanedHTML
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil && title == "" {
			title = n.FirstChild.Data
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				sb.WriteString(trimmed)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, strings.TrimSpace(sb.String())
}

// extractLinks resolves every <a href> in rawHTML against base, dropping
// fragments and queries, per spec §4.C step 6.
func extractLinks(rawHTML, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				resolved, err := baseURL.Parse(a.Val)
				if err != nil {
					continue
				}
				resolved.Fragment = ""
				resolved.RawQuery = ""
				links = append(links, resolved.String())
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}
