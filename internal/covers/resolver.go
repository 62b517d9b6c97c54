// Package covers turns a title/author pair into a displayable cover image URL.
// Lookups fall through Open Library, Google Books and finally a generated
// placeholder, so Resolve always returns something.
package covers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"book-discovery/internal/logger"
	"book-discovery/internal/metrics"
	"book-discovery/internal/model"
)

const (
	DefaultOpenLibraryURL   = "https://openlibrary.org"
	DefaultCoversURL        = "https://covers.openlibrary.org"
	DefaultGoogleBooksURL   = "https://www.googleapis.com"
	DefaultPlaceholderURL   = "https://placehold.co"
	placeholderTitleLength  = 30
	placeholderAuthorLength = 20
	openLibraryResultLimit  = 5
)

// Doer performs HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures endpoints and per-call timeouts
type Options struct {
	OpenLibraryURL     string
	CoversURL          string
	GoogleBooksURL     string
	PlaceholderURL     string
	GoogleBooksAPIKey  string
	SearchTimeout      time.Duration
	ExistenceTimeout   time.Duration
	GoogleBooksTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.OpenLibraryURL == "" {
		o.OpenLibraryURL = DefaultOpenLibraryURL
	}
	if o.CoversURL == "" {
		o.CoversURL = DefaultCoversURL
	}
	if o.GoogleBooksURL == "" {
		o.GoogleBooksURL = DefaultGoogleBooksURL
	}
	if o.PlaceholderURL == "" {
		o.PlaceholderURL = DefaultPlaceholderURL
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 5 * time.Second
	}
	if o.ExistenceTimeout <= 0 {
		o.ExistenceTimeout = 3 * time.Second
	}
	if o.GoogleBooksTimeout <= 0 {
		o.GoogleBooksTimeout = 5 * time.Second
	}
}

// Resolver finds cover images for books
type Resolver struct {
	client Doer
	opts   Options
}

// NewResolver creates a Resolver; a nil client uses http.DefaultClient
func NewResolver(client Doer, opts Options) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	opts.setDefaults()
	return &Resolver{client: client, opts: opts}
}

// Resolve returns a cover URL for the book. It never fails.
func (r *Resolver) Resolve(ctx context.Context, title, author string) string {
	log := logger.For(ctx).WithField("title", title)

	if coverURL, ok := r.fromOpenLibrary(ctx, title, author); ok {
		return coverURL
	}

	if coverURL, ok := r.fromGoogleBooks(ctx, title, author); ok {
		metrics.CoverSourceTotal.WithLabelValues("google_books").Inc()
		log.Debugf("[COVER] Google Books cover found")
		return coverURL
	}

	log.Debugf("[COVER] No cover found, using placeholder")
	metrics.CoverSourceTotal.WithLabelValues("placeholder").Inc()
	return r.Placeholder(title, author)
}

type openLibraryResponse struct {
	Docs []struct {
		Key        string   `json:"key"`
		Title      string   `json:"title"`
		AuthorName []string `json:"author_name"`
		CoverID    int64    `json:"cover_i"`
		ISBN       []string `json:"isbn"`
	} `json:"docs"`
}

func (r *Resolver) fromOpenLibrary(ctx context.Context, title, author string) (string, bool) {
	log := logger.For(ctx).WithField("title", title)

	terms := cleanForSearch(title)
	if author != "" && author != model.UnknownAuthor {
		terms += " " + cleanForSearch(author)
	}
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return "", false
	}

	params := url.Values{}
	params.Set("q", terms)
	params.Set("limit", fmt.Sprint(openLibraryResultLimit))
	params.Set("fields", "key,title,author_name,cover_i,isbn")

	var resp openLibraryResponse
	if err := r.getJSON(ctx, r.opts.OpenLibraryURL+"/search.json?"+params.Encode(), r.opts.SearchTimeout, "open_library", &resp); err != nil {
		log.Debugf("[COVER] Open Library search failed: %v", err)
		return "", false
	}

	for _, doc := range resp.Docs {
		if doc.CoverID > 0 {
			metrics.CoverSourceTotal.WithLabelValues("open_library_id").Inc()
			return fmt.Sprintf("%s/b/id/%d-L.jpg", r.opts.CoversURL, doc.CoverID), true
		}
	}

	for _, doc := range resp.Docs {
		if len(doc.ISBN) == 0 {
			continue
		}
		isbnURL := fmt.Sprintf("%s/b/isbn/%s-L.jpg", r.opts.CoversURL, url.PathEscape(doc.ISBN[0]))
		if r.exists(ctx, isbnURL+"?default=false") {
			metrics.CoverSourceTotal.WithLabelValues("open_library_isbn").Inc()
			return isbnURL, true
		}
		log.Debugf("[COVER] ISBN cover %s does not exist", doc.ISBN[0])
		break
	}

	return "", false
}

type googleBooksResponse struct {
	Items []struct {
		VolumeInfo struct {
			ImageLinks struct {
				SmallThumbnail string `json:"smallThumbnail"`
				Thumbnail      string `json:"thumbnail"`
				Small          string `json:"small"`
				Medium         string `json:"medium"`
				Large          string `json:"large"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (r *Resolver) fromGoogleBooks(ctx context.Context, title, author string) (string, bool) {
	q := fmt.Sprintf(`intitle:"%s"`, stripQuotes(title))
	if author != "" && author != model.UnknownAuthor {
		q += fmt.Sprintf(` inauthor:"%s"`, stripQuotes(author))
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", "1")
	if r.opts.GoogleBooksAPIKey != "" {
		params.Set("key", r.opts.GoogleBooksAPIKey)
	}

	var resp googleBooksResponse
	if err := r.getJSON(ctx, r.opts.GoogleBooksURL+"/books/v1/volumes?"+params.Encode(), r.opts.GoogleBooksTimeout, "google_books", &resp); err != nil {
		logger.For(ctx).Debugf("[COVER] Google Books lookup failed: %v", err)
		return "", false
	}

	for _, item := range resp.Items {
		links := item.VolumeInfo.ImageLinks
		for _, candidate := range []string{links.Large, links.Medium, links.Thumbnail} {
			if candidate != "" {
				return forceHTTPS(candidate), true
			}
		}
	}
	return "", false
}

// Placeholder builds a generated image URL showing the truncated title and author
func (r *Resolver) Placeholder(title, author string) string {
	text := truncateRunes(title, placeholderTitleLength)
	if author != "" {
		text += "\nby " + truncateRunes(author, placeholderAuthorLength)
	}
	return fmt.Sprintf("%s/300x450/4F46E5/FFFFFF?text=%s", r.opts.PlaceholderURL, url.QueryEscape(text))
}

// exists issues a HEAD request bounded by the existence timeout
func (r *Resolver) exists(ctx context.Context, target string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ExistenceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues("cover_head", "error").Observe(time.Since(start).Seconds())
		return false
	}
	resp.Body.Close()
	metrics.UpstreamRequestDuration.WithLabelValues("cover_head", "ok").Observe(time.Since(start).Seconds())
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (r *Resolver) getJSON(ctx context.Context, target string, timeout time.Duration, upstream string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues(upstream, "error").Observe(time.Since(start).Seconds())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestDuration.WithLabelValues(upstream, "error").Observe(time.Since(start).Seconds())
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return fmt.Errorf("%s %d: %s", upstream, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues(upstream, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("failed to parse %s response: %w", upstream, err)
	}
	metrics.UpstreamRequestDuration.WithLabelValues(upstream, "ok").Observe(time.Since(start).Seconds())
	return nil
}

var nonAlphanumeric = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// cleanForSearch strips punctuation, lower-cases and collapses whitespace
func cleanForSearch(s string) string {
	s = nonAlphanumeric.ReplaceAllString(s, " ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

func forceHTTPS(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return s
}
