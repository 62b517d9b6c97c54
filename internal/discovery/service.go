// Package discovery turns a free-text query into a finished search result:
// LLM recommendations, each enriched with a cover and an optional PDF link.
package discovery

import (
	"context"
	"strings"

	"book-discovery/internal/logger"
	"book-discovery/internal/metrics"
	"book-discovery/internal/model"

	"golang.org/x/sync/errgroup"
)

// RecommendationSource produces recommendations for a query
type RecommendationSource interface {
	Fetch(ctx context.Context, query string) (*model.Recommendation, error)
	ClearCache()
}

// CoverResolver always yields a displayable cover URL
type CoverResolver interface {
	Resolve(ctx context.Context, title, author string) string
}

// PDFLocator returns a PDF link, or false when none is known
type PDFLocator interface {
	Locate(ctx context.Context, title, author string) (string, bool)
}

type Service struct {
	source    RecommendationSource
	converter *Converter
}

func NewService(source RecommendationSource, converter *Converter) *Service {
	return &Service{source: source, converter: converter}
}

// Search never fails. Any recommendation failure yields an empty result
// echoing the query.
func (s *Service) Search(ctx context.Context, query string) *model.SearchResult {
	log := logger.For(ctx).WithField("query", query)

	if strings.TrimSpace(query) == "" {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		return model.EmptySearchResult(query)
	}
	defer logger.Track(ctx, "[SEARCH] Search")()

	rec, err := s.source.Fetch(ctx, query)
	if err != nil {
		log.Errorf("[SEARCH] Recommendation failed: %v", err)
		metrics.SearchesTotal.WithLabelValues("failed").Inc()
		return model.EmptySearchResult(query)
	}

	books := make([]model.Book, len(rec.Recommendations))
	var g errgroup.Group
	for i, text := range rec.Recommendations {
		g.Go(func() error {
			books[i] = s.converter.Convert(ctx, text, i, query)
			return nil
		})
	}
	_ = g.Wait()

	ordered, withPDF := partitionByPDF(books)
	withoutPDF := len(ordered) - withPDF

	result := &model.SearchResult{
		Books:                  ordered,
		TotalResults:           len(ordered),
		Query:                  query,
		SearchTerms:            rec.SearchTerms,
		AIRecommendationsCount: len(ordered),
		PDFFoundCount:          withPDF,
		BooksWithoutPDFs:       &withoutPDF,
	}
	if rec.EnhancedQuery != "" {
		enhanced := rec.EnhancedQuery
		result.EnhancedQuery = &enhanced
	}

	outcome := "ok"
	if len(ordered) == 0 {
		outcome = "empty"
	}
	metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	log.Infof("[SEARCH] %d book(s), %d with PDF", len(ordered), withPDF)
	return result
}

// ClearCache drops cached recommendations
func (s *Service) ClearCache() {
	s.source.ClearCache()
}

// partitionByPDF puts books with a download link first, keeping the
// relative order within each group. It returns the count of PDF books.
func partitionByPDF(books []model.Book) ([]model.Book, int) {
	out := make([]model.Book, 0, len(books))
	var rest []model.Book
	for _, b := range books {
		if b.HasPDF() {
			out = append(out, b)
		} else {
			rest = append(rest, b)
		}
	}
	withPDF := len(out)
	return append(out, rest...), withPDF
}
