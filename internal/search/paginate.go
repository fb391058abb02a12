package search

import "github.com/sells-group/lead-finder/internal/model"

// DefaultPageSize matches the result table's page length.
const DefaultPageSize = 20

// Paginator is a window over a result set. The current page is clamped into
// range whenever the underlying set shrinks, so a local delete can never
// strand the view past the last page.
type Paginator struct {
	pageSize int
	page     int
	items    []model.Lead
}

// NewPaginator creates a paginator positioned on the first page.
func NewPaginator(items []model.Lead, pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator{pageSize: pageSize, page: 1, items: items}
}

// Reset replaces the result set and returns to the first page.
func (p *Paginator) Reset(items []model.Lead) {
	p.items = items
	p.page = 1
}

// Len returns the total number of items.
func (p *Paginator) Len() int {
	return len(p.items)
}

// Page returns the current 1-based page number.
func (p *Paginator) Page() int {
	return p.page
}

// TotalPages returns the number of pages; zero when the set is empty.
func (p *Paginator) TotalPages() int {
	return (len(p.items) + p.pageSize - 1) / p.pageSize
}

// Rows returns the items on the current page.
func (p *Paginator) Rows() []model.Lead {
	start := (p.page - 1) * p.pageSize
	if start >= len(p.items) {
		return nil
	}
	end := start + p.pageSize
	if end > len(p.items) {
		end = len(p.items)
	}
	return p.items[start:end]
}

// HasNext reports whether a later page exists.
func (p *Paginator) HasNext() bool {
	return p.page < p.TotalPages()
}

// HasPrev reports whether an earlier page exists.
func (p *Paginator) HasPrev() bool {
	return p.page > 1
}

// Next advances one page; it reports whether the page changed.
func (p *Paginator) Next() bool {
	if !p.HasNext() {
		return false
	}
	p.page++
	return true
}

// Prev steps back one page; it reports whether the page changed.
func (p *Paginator) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	p.page--
	return true
}

// Delete removes the lead with the given place id from the set and re-clamps
// the current page: if the last page emptied, the view moves back one page,
// never below page one. Reports whether anything was removed.
func (p *Paginator) Delete(placeID string) bool {
	idx := -1
	for i, l := range p.items {
		if l.PlaceID == placeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	p.items = append(p.items[:idx], p.items[idx+1:]...)

	total := p.TotalPages()
	switch {
	case len(p.items) == 0:
		p.page = 1
	case p.page > total:
		p.page = total
	}
	return true
}
