// Package table implements the list engine shared by every portal view:
// substring search, stable single-field sort and page-window slicing.
package table

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/erp/portal/internal/domain/shared"
)

// DefaultPageSizes are the page sizes offered by list views unless a schema
// declares its own.
var DefaultPageSizes = []int{10, 25, 50}

// Field names a sortable column. Fields are declared per schema so callers can
// only sort by columns the record type actually has.
type Field string

// Comparator orders two records. It returns a negative number when a sorts
// before b, zero when they tie and a positive number otherwise.
type Comparator[T any] func(a, b T) int

// Predicate reports whether a record passes a domain filter.
type Predicate[T any] func(T) bool

// Schema declares how a record type is searched, sorted and paged.
type Schema[T any] struct {
	Name string
	// SearchFields extract the strings tested by the search term. A record
	// matches when any of them contains the term. Without search fields
	// only the empty term matches.
	SearchFields    []func(T) string
	SortFields      map[Field]Comparator[T]
	PageSizes       []int
	DefaultPageSize int
}

// Sortable reports whether field has a comparator in the schema.
func (s Schema[T]) Sortable(field Field) bool {
	_, ok := s.SortFields[field]
	return ok
}

// SortableFields returns the declared sort fields in name order.
func (s Schema[T]) SortableFields() []Field {
	fields := make([]Field, 0, len(s.SortFields))
	for f := range s.SortFields {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

// AllowsPageSize reports whether size is one of the schema's page sizes.
func (s Schema[T]) AllowsPageSize(size int) bool {
	return slices.Contains(s.pageSizes(), size)
}

func (s Schema[T]) pageSizes() []int {
	if len(s.PageSizes) == 0 {
		return DefaultPageSizes
	}
	return s.PageSizes
}

func (s Schema[T]) defaultPageSize() int {
	if s.DefaultPageSize > 0 {
		return s.DefaultPageSize
	}
	return s.pageSizes()[0]
}

// Validate checks that the schema is usable by a Controller.
func (s Schema[T]) Validate() error {
	if s.Name == "" {
		return shared.NewDomainError(CodeInvalidSchema, "schema name is required")
	}
	for _, size := range s.pageSizes() {
		if size <= 0 {
			return shared.NewDomainError(CodeInvalidSchema,
				fmt.Sprintf("schema %s: page size %d must be positive", s.Name, size))
		}
	}
	if !s.AllowsPageSize(s.defaultPageSize()) {
		return shared.NewDomainError(CodeInvalidSchema,
			fmt.Sprintf("schema %s: default page size %d is not an allowed page size", s.Name, s.DefaultPageSize))
	}
	for field, c := range s.SortFields {
		if c == nil {
			return shared.NewDomainError(CodeInvalidSchema,
				fmt.Sprintf("schema %s: sort field %q has no comparator", s.Name, field))
		}
	}
	return nil
}

// ByString compares a string attribute by code point, case-sensitively.
// ISO-8601 dates sort chronologically under this ordering.
func ByString[T any](get func(T) string) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(get(a), get(b))
	}
}

// ByNumber compares an ordered numeric attribute.
func ByNumber[T any, V cmp.Ordered](get func(T) V) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(get(a), get(b))
	}
}

// ByDecimal compares a decimal attribute numerically.
func ByDecimal[T any](get func(T) decimal.Decimal) Comparator[T] {
	return func(a, b T) int {
		return get(a).Cmp(get(b))
	}
}
