package shared

// Filter selects one page of a listing.
// OrderBy is a column name that repositories check against a whitelist.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// Normalize clamps paging into range; OrderDir becomes "asc" or "desc"
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize < 1:
		f.PageSize = 20
	case f.PageSize > 200:
		f.PageSize = 200
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
}

// Offset is the number of rows before the page
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of T plus the totals needed to render pagination
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated wraps items; TotalPages rounds up
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	p := Paginated[T]{Items: items, Total: total, Page: page, PageSize: pageSize}
	if pageSize > 0 {
		p.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return p
}
