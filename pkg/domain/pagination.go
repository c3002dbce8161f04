package domain

import (
	"fmt"
)

// PaginationOptions defines limit/offset pagination parameters
type PaginationOptions struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	MaxLimit int `json:"max_limit,omitempty"` // Maximum allowed limit
}

// PaginationResult contains one page of documents and its metadata
type PaginationResult struct {
	Documents []*Document `json:"documents" msgpack:"documents"`
	HasNext   bool        `json:"has_next" msgpack:"has_next"`
	HasPrev   bool        `json:"has_prev" msgpack:"has_prev"`
	Total     int64       `json:"total" msgpack:"total"`
}

// DefaultPaginationOptions returns default pagination settings
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{
		Limit:    50,
		MaxLimit: 1000,
	}
}

// Validate validates pagination options
func (po *PaginationOptions) Validate() error {
	if po.Limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", ErrInvalidInput)
	}
	if po.Offset < 0 {
		return fmt.Errorf("%w: offset cannot be negative", ErrInvalidInput)
	}
	if po.MaxLimit > 0 && po.Limit > po.MaxLimit {
		return fmt.Errorf("%w: limit %d exceeds maximum %d", ErrInvalidInput, po.Limit, po.MaxLimit)
	}
	return nil
}

// Paginate slices an ordered document list. A zero limit returns everything
// after the offset.
func Paginate(docs []*Document, po *PaginationOptions) *PaginationResult {
	total := len(docs)
	start := po.Offset
	if start > total {
		start = total
	}
	end := total
	if po.Limit > 0 && start+po.Limit < total {
		end = start + po.Limit
	}
	return &PaginationResult{
		Documents: docs[start:end],
		HasNext:   end < total,
		HasPrev:   start > 0,
		Total:     int64(total),
	}
}
