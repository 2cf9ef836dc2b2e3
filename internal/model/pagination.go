package model

const (
	// DefaultPageNumber is used when a non-positive page number reaches the store.
	DefaultPageNumber = 1
	// DefaultPageSize is used when a non-positive page size reaches the store.
	DefaultPageSize = 10
	// MaxPageSize is the largest page a caller may request.
	MaxPageSize = 100
)

// ListUsersParams describes one page of the user listing.
type ListUsersParams struct {
	PageNumber int  `json:"pageNumber" validate:"gt=0"`
	PageSize   int  `json:"pageSize" validate:"gt=0,lte=100"`
	ActiveOnly bool `json:"activeOnly"`
}

// Limit returns the page size, falling back to DefaultPageSize.
func (p ListUsersParams) Limit() int {
	if p.PageSize > 0 {
		return p.PageSize
	}
	return DefaultPageSize
}

// Offset returns the number of rows to skip before the page starts.
func (p ListUsersParams) Offset() int {
	page := p.PageNumber
	if page <= 0 {
		page = DefaultPageNumber
	}
	return (page - 1) * p.Limit()
}
