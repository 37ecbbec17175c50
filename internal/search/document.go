package search

// Document is the denormalized projection of a book stored in the external
// index, keyed by the book's id. It is eventually consistent with the
// database: every book write re-indexes it, every delete removes it, and it
// is only ever read back as a list of matching ids.
type Document struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	AuthorName  string `json:"author_name"`
	PublishedAt string `json:"published_at,omitempty"`
	TotalSales  int64  `json:"total_sales"`
}
