package user

// Pagination describes one page of a user listing.
type Pagination struct {
	Total      int64
	Page       int64 // 1-based
	Limit      int64
	TotalPages int64
}

// NewPagination computes the page count for total records. A non-positive
// limit yields zero pages.
func NewPagination(total, page, limit int64) *Pagination {
	p := &Pagination{Total: total, Page: page, Limit: limit}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	return p
}

// HasNext reports whether a page follows this one.
func (p *Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// PageOffset returns the number of rows to skip for a 1-based page.
func PageOffset(page, limit int64) int64 {
	if page <= 1 || limit <= 0 {
		return 0
	}
	return (page - 1) * limit
}
