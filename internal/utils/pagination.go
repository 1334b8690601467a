// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// Pagination defaults shared by the HTTP layer and the services.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault converts s with strconv.Atoi, returning def when s is empty or
// not an integer. Surrounding spaces are not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParsePage reads page and page_size query values and clamps them to
// page >= 1 and 1 <= pageSize <= MaxPageSize.
func ParsePage(pageStr, sizeStr string) (page, pageSize int) {
	page = max(AtoiDefault(pageStr, 1), 1)
	pageSize = min(max(AtoiDefault(sizeStr, DefaultPageSize), 1), MaxPageSize)
	return page, pageSize
}

// LimitOffset converts a 1-based page into SQL limit and offset. Non-positive
// inputs fall back to the first page of DefaultPageSize rows.
func LimitOffset(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return pageSize, (page - 1) * pageSize
}
