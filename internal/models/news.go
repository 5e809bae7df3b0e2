package models

// NewsItem is a single article returned by the Naver news search API,
// cleaned of markup and tagged with the keyword it matched.
type NewsItem struct {
	Date        string `json:"date"`    // Publication date, YYYY-MM-DD
	Keyword     string `json:"keyword"` // Search keyword that produced this hit
	Press       string `json:"press"`   // Publisher name derived from the article host
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	OriginalURL string `json:"original_url"`
}
