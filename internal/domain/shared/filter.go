package shared

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter carries the paging, sorting and free-text search every list
// endpoint accepts. Repositories embed it in their own filter types.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// DefaultFilter is the first page, newest first
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}

// Normalize clamps paging into range. Anything but "asc" sorts descending.
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
	return f
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
