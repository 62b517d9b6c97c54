package model

// BookSource tags where a book record came from
type BookSource string

const SourceAIRecommendation BookSource = "ai-recommendation"

// UnknownAuthor is assigned when a citation carries no "by <author>" part
const UnknownAuthor = "Unknown Author"

type Book struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Author             []string   `json:"author"`
	Subjects           []string   `json:"subjects"`
	Source             BookSource `json:"source"`
	IsAIRecommendation bool       `json:"isAIRecommendation"`
	DownloadURL        *string    `json:"downloadUrl,omitempty"`
	CoverURL           string     `json:"coverUrl"`
}

// HasPDF reports whether a download link was found for the book
func (b *Book) HasPDF() bool {
	return b.DownloadURL != nil && *b.DownloadURL != ""
}

// PrimaryAuthor returns the first listed author
func (b *Book) PrimaryAuthor() string {
	if len(b.Author) == 0 {
		return UnknownAuthor
	}
	return b.Author[0]
}
