// Package listing windows an in-memory collection into pages and derives
// dropdown options from it.
package listing

import "sync"

// Page sizes used by the storefront grids and the back-office tables
const (
	DefaultPageSize = 6
	AdminPageSize   = 10
)

// Page is one window of a collection plus the numbers a pager needs
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
}

// TotalPages is ceil(n/size) but never less than 1
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (n + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage keeps a 1-based page number inside [1, totalPages]
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate returns items[(page-1)*size : page*size], with page clamped first
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := TotalPages(len(items), size)
	page = ClampPage(page, total)

	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	window := make([]T, end-start)
	copy(window, items[start:end])

	return Page[T]{
		Items:      window,
		Page:       page,
		PageSize:   size,
		TotalPages: total,
		TotalItems: len(items),
	}
}

// Filter keeps the items accepted by keep, preserving order
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Distinct collects the distinct non-zero keys of items in first-seen order.
// Options are derived from whatever collection is passed in, so a narrowed
// collection yields narrowed options.
func Distinct[T any, K comparable](items []T, key func(T) K) []K {
	var zero K
	seen := make(map[K]struct{}, len(items))
	out := make([]K, 0)
	for _, it := range items {
		k := key(it)
		if k == zero {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Controller holds the filter value and current page of one list view.
// Any change of filter value sends the view back to page 1.
type Controller[F comparable] struct {
	mu      sync.Mutex
	filters F
	page    int
}

// NewController starts on page 1 with zero filters
func NewController[F comparable]() *Controller[F] {
	return &Controller[F]{page: 1}
}

// Filters returns the current filter value
func (c *Controller[F]) Filters() F {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Page returns the current page
func (c *Controller[F]) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// SetFilters stores f and reports whether it differed from the previous value
func (c *Controller[F]) SetFilters(f F) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == c.filters {
		return false
	}
	c.filters = f
	c.page = 1
	return true
}

// Reset clears every filter and returns to page 1
func (c *Controller[F]) Reset() {
	c.mu.Lock()
	var zero F
	c.filters = zero
	c.page = 1
	c.mu.Unlock()
}

// Goto moves to page, clamped to [1, totalPages]
func (c *Controller[F]) Goto(page, totalPages int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = ClampPage(page, totalPages)
	return c.page
}

// Next advances one page unless already on the last one
func (c *Controller[F]) Next(totalPages int) int {
	return c.Goto(c.Page()+1, totalPages)
}

// Prev goes back one page unless already on the first one
func (c *Controller[F]) Prev(totalPages int) int {
	return c.Goto(c.Page()-1, totalPages)
}

// Window paginates items at the controller's current page and stores the
// clamped page back
func Window[T any, F comparable](c *Controller[F], items []T, size int) Page[T] {
	p := Paginate(items, c.Page(), size)
	c.Goto(p.Page, p.TotalPages)
	return p
}
