// Package paging slices the filtered, sorted rows into 1-based pages.
package paging

import (
	"errors"
	"fmt"
)

// DefaultPageSize is used when a config leaves PageSize unset.
const DefaultPageSize = 10

// MaxVisiblePages is the width of the page-number window.
const MaxVisiblePages = 5

// ErrPageOutOfRange is returned when navigating outside [1, TotalPages].
var ErrPageOutOfRange = errors.New("page out of range")

// Config holds the pagination parameters.
type Config struct {
	Enabled  bool // Slice rows into pages (false = single page)
	PageSize int  // Rows per page (0 = DefaultPageSize)
	// ServerDriven means the rows already are one page; they are never
	// re-sliced and TotalCount supplies the size of the full result.
	ServerDriven bool
	TotalCount   int
}

// Validate checks for nonsensical values.
func (c Config) Validate() error {
	if c.PageSize < 0 {
		return fmt.Errorf("--page-size must be non-negative, got %d", c.PageSize)
	}
	if c.TotalCount < 0 {
		return fmt.Errorf("total count must be non-negative, got %d", c.TotalCount)
	}
	return nil
}

// Size returns the effective page size.
func (c Config) Size() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

// Pager tracks the current page for one table.
type Pager struct {
	cfg  Config
	page int
}

// New returns a pager positioned on page 1.
func New(cfg Config) *Pager {
	return &Pager{cfg: cfg, page: 1}
}

// Config returns the pager configuration.
func (p *Pager) Config() Config { return p.cfg }

// SetTotalCount updates the server-side total for server-driven paging.
func (p *Pager) SetTotalCount(n int) {
	if n >= 0 {
		p.cfg.TotalCount = n
	}
}

// Page returns the current 1-based page.
func (p *Pager) Page() int { return p.page }

// TotalPages returns ceil(count/pageSize). Disabled paging is one page.
// count is ignored when paging is server-driven.
func (p *Pager) TotalPages(count int) int {
	if !p.cfg.Enabled {
		return 1
	}
	if p.cfg.ServerDriven {
		count = p.cfg.TotalCount
	}
	size := p.cfg.Size()
	return (count + size - 1) / size
}

// GoTo moves to page. Pages outside [1, TotalPages(count)] are rejected
// and leave the current page unchanged.
func (p *Pager) GoTo(page, count int) error {
	total := p.TotalPages(count)
	if page < 1 || page > total {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, page, total)
	}
	p.page = page
	return nil
}

// Next advances one page.
func (p *Pager) Next(count int) error { return p.GoTo(p.page+1, count) }

// Prev goes back one page.
func (p *Pager) Prev(count int) error { return p.GoTo(p.page-1, count) }

// Reset returns to page 1, used whenever the search term or filters change.
func (p *Pager) Reset() { p.page = 1 }

// Clamp pulls the current page back inside range after the row count
// shrinks, e.g. once a refresh removes rows.
func (p *Pager) Clamp(count int) {
	total := p.TotalPages(count)
	if total < 1 {
		p.page = 1
		return
	}
	if p.page > total {
		p.page = total
	}
}

// Bounds returns the half-open [start, end) indexes of the current page.
func (p *Pager) Bounds(count int) (start, end int) {
	if !p.cfg.Enabled || p.cfg.ServerDriven {
		return 0, count
	}
	size := p.cfg.Size()
	start = (p.page - 1) * size
	if start > count {
		start = count
	}
	end = start + size
	if end > count {
		end = count
	}
	return start, end
}

// Slice returns the current page of rows.
func Slice[T any](p *Pager, rows []T) []T {
	start, end := p.Bounds(len(rows))
	return rows[start:end]
}

// Item is one entry of the page-number bar: a page number or an ellipsis.
type Item struct {
	Page     int
	Ellipsis bool
	Current  bool
}

// PageNumbers returns the page bar for current of total: every page when
// total fits the window, otherwise a window of MaxVisiblePages starting two
// before current, with the first and last page and ellipses around it.
func PageNumbers(current, total int) []Item {
	if total <= 0 {
		return nil
	}
	items := make([]Item, 0, MaxVisiblePages+4)
	add := func(n int) {
		items = append(items, Item{Page: n, Current: n == current})
	}
	if total <= MaxVisiblePages {
		for i := 1; i <= total; i++ {
			add(i)
		}
		return items
	}
	start := max(1, current-2)
	end := min(total, start+MaxVisiblePages-1)
	if start > 1 {
		add(1)
		if start > 2 {
			items = append(items, Item{Ellipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		add(i)
	}
	if end < total {
		if end < total-1 {
			items = append(items, Item{Ellipsis: true})
		}
		add(total)
	}
	return items
}
