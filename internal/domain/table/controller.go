package table

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/erp/portal/internal/domain/shared"
)

// Error codes reported by the table engine.
const (
	CodeInvalidSchema    = "INVALID_SCHEMA"
	CodeUnknownSortField = "UNKNOWN_SORT_FIELD"
	CodeInvalidPageSize  = "INVALID_PAGE_SIZE"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnknownSortField = shared.NewDomainError(CodeUnknownSortField, "Unknown sort field")
	ErrInvalidPageSize  = shared.NewDomainError(CodeInvalidPageSize, "Page size is not allowed")
)

// Direction is the sort direction of the active sort field.
type Direction string

// Sort directions
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// SortSpec is the active sort. An empty Field means insertion order.
type SortSpec struct {
	Field     Field     `json:"field,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Active reports whether a sort field is set.
func (s SortSpec) Active() bool {
	return s.Field != ""
}

// State is a read-only snapshot of a controller.
type State[T any] struct {
	shared.Paginated[T]
	TotalCount int      `json:"total_count"`
	SearchTerm string   `json:"search_term"`
	Sort       SortSpec `json:"sort"`
	Filters    []string `json:"filters"`
	PageSizes  []int    `json:"page_sizes"`
}

// Controller holds a raw record set and derives the visible page from the
// search term, domain filters, sort and paging inputs. Every mutation
// recomputes the derived view from the raw records, which are never modified.
//
// A Controller is not safe for concurrent use.
type Controller[T any] struct {
	schema Schema[T]
	caser  cases.Caser

	raw        []T
	term       string
	foldedTerm string
	filters    map[string]Predicate[T]
	sort       SortSpec
	page       int
	pageSize   int

	view []T
}

// NewController creates a controller for the given schema with no data.
func NewController[T any](schema Schema[T]) (*Controller[T], error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	c := &Controller[T]{
		schema:   schema,
		caser:    cases.Fold(),
		filters:  make(map[string]Predicate[T]),
		page:     1,
		pageSize: schema.defaultPageSize(),
	}
	c.recompute()
	return c, nil
}

// MustNewController is like NewController but panics on an invalid schema.
// It is intended for package-level schema tables.
func MustNewController[T any](schema Schema[T]) *Controller[T] {
	c, err := NewController(schema)
	if err != nil {
		panic(err)
	}
	return c
}

// Schema returns the controller's schema.
func (c *Controller[T]) Schema() Schema[T] {
	return c.schema
}

// SetData replaces the raw record set and returns to the first page.
func (c *Controller[T]) SetData(records []T) {
	c.raw = slices.Clone(records)
	c.page = 1
	c.recompute()
}

// SetSearchTerm filters records to those with any search field containing
// term, ignoring case. An empty term matches every record.
func (c *Controller[T]) SetSearchTerm(term string) {
	c.term = term
	c.foldedTerm = c.caser.String(term)
	c.page = 1
	c.recompute()
}

// SetSort sorts by field. Selecting the active field again flips the
// direction; a new field starts ascending. The current page is kept.
func (c *Controller[T]) SetSort(field Field) error {
	if !c.schema.Sortable(field) {
		return &shared.DomainError{
			Code:    CodeUnknownSortField,
			Message: fmt.Sprintf("%s cannot be sorted by %q", c.schema.Name, field),
		}
	}
	if c.sort.Field == field {
		c.sort.Direction = c.sort.Direction.Toggle()
	} else {
		c.sort = SortSpec{Field: field, Direction: Asc}
	}
	c.recompute()
	return nil
}

// ClearSort restores insertion order.
func (c *Controller[T]) ClearSort() {
	c.sort = SortSpec{}
	c.recompute()
}

// SetPageSize changes the page size and returns to the first page.
func (c *Controller[T]) SetPageSize(size int) error {
	if !c.schema.AllowsPageSize(size) {
		return &shared.DomainError{
			Code:    CodeInvalidPageSize,
			Message: fmt.Sprintf("page size %d is not one of %v", size, c.schema.pageSizes()),
		}
	}
	c.pageSize = size
	c.page = 1
	c.recompute()
	return nil
}

// SetFilter installs a named domain filter that a record must pass in
// addition to the search term. Installing a filter under an existing name
// replaces it.
func (c *Controller[T]) SetFilter(name string, p Predicate[T]) {
	if p == nil {
		c.ClearFilter(name)
		return
	}
	c.filters[name] = p
	c.page = 1
	c.recompute()
}

// ClearFilter removes a named domain filter.
func (c *Controller[T]) ClearFilter(name string) {
	if _, ok := c.filters[name]; !ok {
		return
	}
	delete(c.filters, name)
	c.page = 1
	c.recompute()
}

// NextPage advances one page. It does nothing on the last page.
func (c *Controller[T]) NextPage() {
	if c.page < c.TotalPages() {
		c.page++
	}
}

// PreviousPage goes back one page. It does nothing on the first page.
func (c *Controller[T]) PreviousPage() {
	if c.page > 1 {
		c.page--
	}
}

// GoToPage jumps to page, clamped into [1, TotalPages].
func (c *Controller[T]) GoToPage(page int) {
	c.page = min(max(page, 1), c.TotalPages())
}

// Reset clears search, filters and sort and returns to the default page size.
// The raw records are kept.
func (c *Controller[T]) Reset() {
	c.term = ""
	c.foldedTerm = ""
	clear(c.filters)
	c.sort = SortSpec{}
	c.pageSize = c.schema.defaultPageSize()
	c.page = 1
	c.recompute()
}

// Page returns the 1-based current page.
func (c *Controller[T]) Page() int { return c.page }

// PageSize returns the current page size.
func (c *Controller[T]) PageSize() int { return c.pageSize }

// SearchTerm returns the term as it was set.
func (c *Controller[T]) SearchTerm() string { return c.term }

// Sort returns the active sort.
func (c *Controller[T]) Sort() SortSpec { return c.sort }

// TotalCount returns the number of raw records.
func (c *Controller[T]) TotalCount() int { return len(c.raw) }

// FilteredCount returns the number of records passing search and filters.
func (c *Controller[T]) FilteredCount() int { return len(c.view) }

// TotalPages returns the page count for the filtered records, at least one.
func (c *Controller[T]) TotalPages() int {
	return shared.TotalPages(len(c.view), c.pageSize)
}

// CurrentPageItems returns the records on the current page. The last page
// may be short; an empty result yields an empty slice.
func (c *Controller[T]) CurrentPageItems() []T {
	start := (c.page - 1) * c.pageSize
	if start >= len(c.view) {
		return []T{}
	}
	end := min(start+c.pageSize, len(c.view))
	return slices.Clone(c.view[start:end])
}

// FilteredItems returns every record passing search and filters, in display
// order.
func (c *Controller[T]) FilteredItems() []T {
	return slices.Clone(c.view)
}

// State returns a snapshot of the controller for transport.
func (c *Controller[T]) State() State[T] {
	filters := make([]string, 0, len(c.filters))
	for name := range c.filters {
		filters = append(filters, name)
	}
	slices.Sort(filters)

	p := shared.NewPaginated(c.CurrentPageItems(), len(c.view), c.page, c.pageSize)
	return State[T]{
		Paginated:  p,
		TotalCount: len(c.raw),
		SearchTerm: c.term,
		Sort:       c.sort,
		Filters:    filters,
		PageSizes:  slices.Clone(c.schema.pageSizes()),
	}
}

func (c *Controller[T]) recompute() {
	view := make([]T, 0, len(c.raw))
	for _, r := range c.raw {
		if c.matches(r) {
			view = append(view, r)
		}
	}
	if c.sort.Active() {
		compare := c.schema.SortFields[c.sort.Field]
		if c.sort.Direction == Desc {
			asc := compare
			compare = func(a, b T) int { return asc(b, a) }
		}
		slices.SortStableFunc(view, compare)
	}
	c.view = view
	c.page = min(max(c.page, 1), c.TotalPages())
}

func (c *Controller[T]) matches(r T) bool {
	for _, p := range c.filters {
		if !p(r) {
			return false
		}
	}
	if c.foldedTerm == "" {
		return true
	}
	for _, get := range c.schema.SearchFields {
		if strings.Contains(c.caser.String(get(r)), c.foldedTerm) {
			return true
		}
	}
	return false
}
