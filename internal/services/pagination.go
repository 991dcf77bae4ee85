package services

import "math"

const (
	maxPageLimit = 200
	// keeps (page-1)*limit well inside int on every platform
	maxOffset = math.MaxInt32
)

type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest normalises page and limit; non-positive values fall back to
// page 1 and defaultLimit. Pages past the largest supported offset are
// clamped to it.
func NewPageRequest(page, limit, defaultLimit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if maxPage := maxOffset/limit + 1; page > maxPage {
		page = maxPage
	}
	return PageRequest{Page: page, Limit: limit}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPagination(p PageRequest, total int64) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}
