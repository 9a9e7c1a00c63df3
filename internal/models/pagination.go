package models

import "math"

// DefaultPageSize matches the listing endpoints of every content type.
const DefaultPageSize = 10

type PageMeta struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalItems      int64 `json:"totalItems"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// Page is one page of a paginated query.
type Page[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

func NewPage[T any](items []T, page, limit int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Page[T]{
		Items: items,
		Meta: PageMeta{
			CurrentPage:     page,
			TotalPages:      totalPages,
			TotalItems:      total,
			ItemsPerPage:    limit,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	}
}

// NormalizePage clamps page to at least 1.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
