package model

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// NewPage normalizes page and limit: values below 1 fall back to the
// defaults. Any positive limit is taken as given.
func NewPage(page, limit, defLimit int) Page {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = defLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// TotalPages is ceil(total / limit).
func (p Page) TotalPages(total int64) int64 {
	if p.Limit <= 0 {
		return 0
	}
	l := int64(p.Limit)
	return (total + l - 1) / l
}
