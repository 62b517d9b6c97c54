package model

// Recommendation is the structured answer returned by the LLM
type Recommendation struct {
	EnhancedQuery   string   `json:"enhancedQuery"`
	Recommendations []string `json:"recommendations"`
	SearchTerms     []string `json:"searchTerms"`
}

type SearchResult struct {
	Books                  []Book   `json:"books"`
	TotalResults           int      `json:"totalResults"`
	Query                  string   `json:"query"`
	EnhancedQuery          *string  `json:"enhancedQuery,omitempty"`
	SearchTerms            []string `json:"searchTerms,omitempty"`
	AIRecommendationsCount int      `json:"aiRecommendationsCount"`
	PDFFoundCount          int      `json:"pdfFoundCount"`
	BooksWithoutPDFs       *int     `json:"booksWithoutPDFs,omitempty"`
}

// EmptySearchResult is returned when no recommendations could be produced
func EmptySearchResult(query string) *SearchResult {
	return &SearchResult{
		Books: []Book{},
		Query: query,
	}
}
