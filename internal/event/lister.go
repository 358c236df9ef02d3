package event

import (
	"context"
	"errors"
	"fmt"
)

// Page is one slice of the event collection plus pagination metadata.
type Page struct {
	Events     []Event `json:"events"`
	Number     int     `json:"page"`
	Size       int     `json:"page_size"`
	TotalItems int     `json:"total_items"`
	TotalPages int     `json:"total_pages"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Lister slices the store's events into pages.
type Lister struct {
	store Store
}

func NewLister(store Store) *Lister {
	return &Lister{store: store}
}

// List returns page number page (1-based) of size items.
//
// A page beyond the last one is empty, not an error. Store failures wrap
// ErrStoreUnavailable.
func (l *Lister) List(ctx context.Context, page, size int) (Page, error) {
	if l == nil || l.store == nil {
		return Page{}, ErrStoreUnavailable
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	all, err := l.store.FetchAll(ctx)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return Page{}, err
		}
		return Page{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	total := len(all)
	out := Page{
		Number:     page,
		Size:       size,
		TotalItems: total,
		TotalPages: TotalPages(total, size),
		Events:     []Event{},
	}

	offset := (page - 1) * size
	if offset >= total {
		return out, nil
	}
	end := offset + size
	if end > total {
		end = total
	}
	out.Events = all[offset:end]
	return out, nil
}

// TotalPages is ceil(total/size).
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ClampPage bounds a requested page number to [1, max(totalPages, 1)].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if totalPages < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
