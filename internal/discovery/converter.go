package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"book-discovery/internal/logger"
	"book-discovery/internal/model"

	"golang.org/x/sync/errgroup"
)

// IDPrefix is prepended to the positional index to form a book ID
const IDPrefix = "ai-rec-"

// SubjectAIRecommendation is the first subject on every converted book
const SubjectAIRecommendation = "AI Recommendation"

var (
	citationRegex   = regexp.MustCompile(`(?i)^(.+?)\s+by\s+(.+)$`)
	listMarkerRegex = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
)

// Citation is a parsed "Title by Author" recommendation
type Citation struct {
	Title   string
	Authors []string
}

// ParseCitation splits a recommendation into title and authors. A string
// without a "by" separator becomes the title with an unknown author.
func ParseCitation(text string) Citation {
	text = strings.TrimSpace(listMarkerRegex.ReplaceAllString(text, ""))

	m := citationRegex.FindStringSubmatch(text)
	if m == nil {
		return Citation{Title: cleanTitle(text), Authors: []string{model.UnknownAuthor}}
	}

	var authors []string
	for _, a := range strings.Split(m[2], ",") {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	if len(authors) == 0 {
		authors = []string{model.UnknownAuthor}
	}
	return Citation{Title: cleanTitle(m[1]), Authors: authors}
}

func cleanTitle(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'“”‘’*_`))
}

// Converter turns recommendation strings into book records
type Converter struct {
	covers CoverResolver
	pdfs   PDFLocator
}

func NewConverter(covers CoverResolver, pdfs PDFLocator) *Converter {
	return &Converter{covers: covers, pdfs: pdfs}
}

// Convert builds the book for one recommendation. The cover and PDF lookups
// run concurrently and both finish before the record is assembled.
func (c *Converter) Convert(ctx context.Context, text string, index int, originalQuery string) model.Book {
	cit := ParseCitation(text)
	book := model.Book{
		ID:                 fmt.Sprintf("%s%d", IDPrefix, index),
		Title:              cit.Title,
		Author:             cit.Authors,
		Subjects:           []string{SubjectAIRecommendation, originalQuery},
		Source:             model.SourceAIRecommendation,
		IsAIRecommendation: true,
	}
	author := book.PrimaryAuthor()

	var (
		coverURL string
		pdfURL   string
		found    bool
	)
	var g errgroup.Group
	g.Go(func() error {
		coverURL = c.covers.Resolve(ctx, book.Title, author)
		return nil
	})
	g.Go(func() error {
		if c.pdfs != nil {
			pdfURL, found = c.pdfs.Locate(ctx, book.Title, author)
		}
		return nil
	})
	_ = g.Wait()

	book.CoverURL = coverURL
	if found && pdfURL != "" {
		book.DownloadURL = &pdfURL
	}

	logger.For(ctx).WithField("book_id", book.ID).Debugf("[SEARCH] Converted %q (pdf=%t)", book.Title, book.HasPDF())
	return book
}
