package common

import (
	"net/http"
	"strconv"
)

const maxPerPage = 100

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination extracts page and limit query parameters, clamping the
// per-page size to a sane upper bound.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	q := r.URL.Query()
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return
}
