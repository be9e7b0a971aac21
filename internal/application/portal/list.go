package portal

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/table"
)

// filterParser turns a filter value into a predicate. A nil predicate with
// a nil error clears the filter.
type filterParser[T any] func(value string) (table.Predicate[T], error)

// column is one exported column of a list.
type column[T any] struct {
	header string
	value  func(T) string
}

// listTab is the type-erased view of a list the workspace drives.
type listTab interface {
	fetch(ctx context.Context) (apply func(), count int, err error)
	clear()
	setSearch(term string)
	setSort(field string) error
	setPageSize(size int) error
	next()
	prev()
	goTo(page int)
	setFilter(name, value string) error
	view() ListView
	sheet() portal.Sheet
}

// list binds a table controller to the fetch that fills it, the filters it
// accepts and the way its rows are presented and exported.
type list[T any] struct {
	name     string
	ctrl     *table.Controller[T]
	load     func(ctx context.Context) ([]T, error)
	present  func(T) any
	columns  []column[T]
	filters  map[string]filterParser[T]
	selected map[string]string
	data     []T
}

func newList[T any](
	schema table.Schema[T],
	load func(ctx context.Context) ([]T, error),
	present func(T) any,
	columns []column[T],
	filters map[string]filterParser[T],
) *list[T] {
	return &list[T]{
		name:     schema.Name,
		ctrl:     table.MustNewController(schema),
		load:     load,
		present:  present,
		columns:  columns,
		filters:  filters,
		selected: make(map[string]string),
	}
}

func (l *list[T]) fetch(ctx context.Context) (func(), int, error) {
	records, err := l.load(ctx)
	if err != nil {
		return nil, 0, err
	}
	return func() {
		l.data = records
		l.ctrl.SetData(records)
	}, len(records), nil
}

func (l *list[T]) clear() {
	l.data = nil
	clear(l.selected)
	l.ctrl.SetData(nil)
	l.ctrl.Reset()
}

func (l *list[T]) setSearch(term string) { l.ctrl.SetSearchTerm(term) }

func (l *list[T]) setSort(field string) error { return l.ctrl.SetSort(table.Field(field)) }

func (l *list[T]) setPageSize(size int) error { return l.ctrl.SetPageSize(size) }

func (l *list[T]) next() { l.ctrl.NextPage() }

func (l *list[T]) prev() { l.ctrl.PreviousPage() }

func (l *list[T]) goTo(page int) { l.ctrl.GoToPage(page) }

func (l *list[T]) setFilter(name, value string) error {
	parse, ok := l.filters[name]
	if !ok {
		return shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("%s has no filter %q", l.name, name))
	}
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") {
		delete(l.selected, name)
		l.ctrl.ClearFilter(name)
		return nil
	}
	p, err := parse(value)
	if err != nil {
		return err
	}
	l.selected[name] = value
	l.ctrl.SetFilter(name, p)
	return nil
}

func (l *list[T]) view() ListView {
	st := l.ctrl.State()
	items := make([]any, len(st.Items))
	for i, r := range st.Items {
		items[i] = l.present(r)
	}
	return ListView{
		Items:         items,
		Page:          st.Page,
		PageSize:      st.PageSize,
		TotalPages:    st.TotalPages,
		FilteredCount: st.Total,
		TotalCount:    st.TotalCount,
		SearchTerm:    st.SearchTerm,
		Sort:          st.Sort,
		SortFields:    l.ctrl.Schema().SortableFields(),
		Filters:       maps.Clone(l.selected),
		PageSizes:     st.PageSizes,
	}
}

func (l *list[T]) sheet() portal.Sheet {
	headers := make([]string, len(l.columns))
	for i, c := range l.columns {
		headers[i] = c.header
	}
	records := l.ctrl.FilteredItems()
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(l.columns))
		for j, c := range l.columns {
			row[j] = c.value(r)
		}
		rows[i] = row
	}
	return portal.Sheet{Name: l.name, Headers: headers, Rows: rows}
}

// find returns the first raw record satisfying match.
func (l *list[T]) find(match func(T) bool) (T, bool) {
	for _, r := range l.data {
		if match(r) {
			return r, true
		}
	}
	var zero T
	return zero, false
}
