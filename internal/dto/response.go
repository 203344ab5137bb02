package dto

type Pagination struct {
	TotalCount  uint64 `json:"total_count"`
	Limit       uint64 `json:"limit"`
	Offset      uint64 `json:"offset"`
	CurrentPage uint64 `json:"current_page,omitempty"`
	TotalPages  uint64 `json:"total_pages,omitempty"`
}

type PaginatedResponse[T any] struct {
	List       []T         `json:"list"`
	Pagination *Pagination `json:"pagination"`
}

func NewPaginatedResponse[T any](list []T, total, limit, offset uint64) *PaginatedResponse[T] {
	if list == nil {
		list = make([]T, 0)
	}
	p := &Pagination{TotalCount: total, Limit: limit, Offset: offset}
	if limit > 0 {
		p.CurrentPage = offset/limit + 1
		p.TotalPages = (total + limit - 1) / limit
	}
	return &PaginatedResponse[T]{List: list, Pagination: p}
}
