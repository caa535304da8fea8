package services

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps Page*Size inside an int32 offset
	MaxPage = math.MaxInt32 / MaxPageSize
)

// PageRequest is a 0-based page of a listing
type PageRequest struct {
	Page      int
	Size      int
	SortBy    string
	Direction string // asc or desc
}

// Page is one page of results plus the total row count
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

// normalize clamps page and size into their allowed ranges
func (p PageRequest) normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Direction != "desc" {
		p.Direction = "asc"
	}
	return p
}

func (p PageRequest) offset() int {
	return p.Page * p.Size
}

// orderClause resolves SortBy against a whitelist of api name -> column
func (p PageRequest) orderClause(columns map[string]string, fallback string) string {
	col, ok := columns[p.SortBy]
	if !ok {
		col = fallback
	}
	return col + " " + p.Direction
}
