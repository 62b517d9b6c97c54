// Package pdf looks up a downloadable PDF for a book using Google
// Programmable Search Engine.
package pdf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"book-discovery/internal/logger"
	"book-discovery/internal/metrics"
	"book-discovery/internal/model"
)

const (
	DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"
	DefaultResults  = 5
	DefaultTimeout  = 15 * time.Second
)

// Doer performs HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures the search credentials and request shape
type Options struct {
	APIKey   string
	EngineID string
	Endpoint string
	Results  int
	Timeout  time.Duration
}

// Locator finds PDF links. Without credentials it is disabled and never
// touches the network.
type Locator struct {
	client Doer
	opts   Options
}

func NewLocator(client Doer, opts Options) *Locator {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Results <= 0 {
		opts.Results = DefaultResults
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Locator{client: client, opts: opts}
}

// Enabled reports whether both the API key and engine id are set
func (l *Locator) Enabled() bool {
	return l.opts.APIKey != "" && l.opts.EngineID != ""
}

type searchItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
	Snippet     string `json:"snippet"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

// Locate returns a PDF link for the book, or false when none is found.
// Errors are logged and reported as absent.
func (l *Locator) Locate(ctx context.Context, title, author string) (string, bool) {
	if !l.Enabled() {
		metrics.PDFLookupsTotal.WithLabelValues("disabled").Inc()
		return "", false
	}
	log := logger.For(ctx).WithField("title", title)

	items, err := l.search(ctx, buildQuery(title, author))
	if err != nil {
		metrics.PDFLookupsTotal.WithLabelValues("error").Inc()
		log.Warnf("[PDF] Search failed: %v", err)
		return "", false
	}

	link, ok := selectLink(items)
	if !ok {
		metrics.PDFLookupsTotal.WithLabelValues("not_found").Inc()
		log.Debugf("[PDF] No PDF among %d result(s)", len(items))
		return "", false
	}
	metrics.PDFLookupsTotal.WithLabelValues("found").Inc()
	log.Debugf("[PDF] Found %s", link)
	return link, true
}

func (l *Locator) search(ctx context.Context, q string) ([]searchItem, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("key", l.opts.APIKey)
	params.Set("cx", l.opts.EngineID)
	params.Set("q", q)
	params.Set("num", strconv.Itoa(l.opts.Results))
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.opts.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues("custom_search", "error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestDuration.WithLabelValues("custom_search", "error").Observe(time.Since(start).Seconds())
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("custom search %d: %s", resp.StatusCode, body)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues("custom_search", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to parse custom search response: %w", err)
	}
	metrics.UpstreamRequestDuration.WithLabelValues("custom_search", "ok").Observe(time.Since(start).Seconds())
	return sr.Items, nil
}

func buildQuery(title, author string) string {
	q := fmt.Sprintf(`"%s"`, strings.ReplaceAll(strings.TrimSpace(title), `"`, ""))
	if author = strings.TrimSpace(author); author != "" && author != model.UnknownAuthor {
		q += " " + author
	}
	return q + " filetype:pdf"
}

// selectLink prefers a link whose path ends in .pdf, then any item that
// mentions pdf in its link, display link or snippet.
func selectLink(items []searchItem) (string, bool) {
	for _, it := range items {
		if isPDFPath(it.Link) {
			return it.Link, true
		}
	}
	for _, it := range items {
		if it.Link == "" {
			continue
		}
		if mentionsPDF(it.Link) || mentionsPDF(it.DisplayLink) || mentionsPDF(it.Snippet) {
			return it.Link, true
		}
	}
	return "", false
}

func isPDFPath(link string) bool {
	if link == "" {
		return false
	}
	path := link
	if u, err := url.Parse(link); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(link, "?#"); i >= 0 {
		path = link[:i]
	}
	return strings.HasSuffix(strings.ToLower(path), ".pdf")
}

func mentionsPDF(s string) bool {
	return strings.Contains(strings.ToLower(s), "pdf")
}
