package dto

import "github.com/yukikurage/taxoffice-api/internal/utils"

// ListResponse is the envelope of every paginated list
type ListResponse[T any] struct {
	Items      []T                      `json:"items"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// NewListResponse wraps items with pagination metadata
func NewListResponse[T any](items []T, params utils.PaginationParams, total int64) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{
		Items:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
