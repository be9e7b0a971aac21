package table

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticket struct {
	ID       string
	Date     string
	Product  string
	Quantity int
	Value    decimal.Decimal
	Status   string
	Overdue  int
}

const (
	fieldID       Field = "id"
	fieldDate     Field = "date"
	fieldProduct  Field = "product"
	fieldQuantity Field = "quantity"
	fieldValue    Field = "value"
)

func ticketSchema() Schema[ticket] {
	return Schema[ticket]{
		Name: "tickets",
		SearchFields: []func(ticket) string{
			func(t ticket) string { return t.ID },
			func(t ticket) string { return t.Product },
			func(t ticket) string { return t.Status },
		},
		SortFields: map[Field]Comparator[ticket]{
			fieldID:       ByString(func(t ticket) string { return t.ID }),
			fieldDate:     ByString(func(t ticket) string { return t.Date }),
			fieldProduct:  ByString(func(t ticket) string { return t.Product }),
			fieldQuantity: ByNumber(func(t ticket) int { return t.Quantity }),
			fieldValue:    ByDecimal(func(t ticket) decimal.Decimal { return t.Value }),
		},
		DefaultPageSize: 10,
	}
}

func makeTickets(n int) []ticket {
	statuses := []string{"Pending", "Approved", "Rejected", "Pending"}
	products := []string{"Widget A", "Gadget B", "Component C", "Device D"}
	out := make([]ticket, n)
	for i := range out {
		out[i] = ticket{
			ID:       fmt.Sprintf("INQ%03d", i+1),
			Date:     fmt.Sprintf("2024-%02d-%02d", i%12+1, i%28+1),
			Product:  products[i%len(products)],
			Quantity: (i*37)%91 + 1,
			Value:    decimal.NewFromInt(int64((i*53)%97 + 1)).Mul(decimal.NewFromFloat(10.5)),
			Status:   statuses[i%len(statuses)],
			Overdue:  i % 3,
		}
	}
	return out
}

func newTicketController(t *testing.T, records []ticket) *Controller[ticket] {
	t.Helper()
	c, err := NewController(ticketSchema())
	require.NoError(t, err)
	c.SetData(records)
	return c
}

func ids(records []ticket) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func collectPages(c *Controller[ticket]) [][]ticket {
	c.GoToPage(1)
	var pages [][]ticket
	for {
		pages = append(pages, c.CurrentPageItems())
		if c.Page() == c.TotalPages() {
			return pages
		}
		c.NextPage()
	}
}

func TestController_TwelveRecordsTwoPages(t *testing.T) {
	c := newTicketController(t, makeTickets(12))

	assert.Len(t, c.CurrentPageItems(), 10)
	assert.Equal(t, 2, c.TotalPages())

	c.NextPage()
	items := c.CurrentPageItems()
	assert.Equal(t, []string{"INQ011", "INQ012"}, ids(items))

	c.NextPage()
	assert.Equal(t, 2, c.Page())
	assert.Equal(t, []string{"INQ011", "INQ012"}, ids(c.CurrentPageItems()))
}

func TestController_EmptyData(t *testing.T) {
	c := newTicketController(t, nil)
	c.SetSearchTerm("")

	assert.Equal(t, 1, c.TotalPages())
	assert.Equal(t, 1, c.Page())
	assert.NotNil(t, c.CurrentPageItems())
	assert.Empty(t, c.CurrentPageItems())

	c.NextPage()
	c.PreviousPage()
	assert.Equal(t, 1, c.Page())
}

func TestController_PagesCoverFilteredSet(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 25, 49, 50, 51, 97} {
		for _, size := range DefaultPageSizes {
			t.Run(fmt.Sprintf("n=%d size=%d", n, size), func(t *testing.T) {
				c := newTicketController(t, makeTickets(n))
				require.NoError(t, c.SetPageSize(size))
				c.SetSearchTerm("a")

				pages := collectPages(c)
				total := 0
				for i, p := range pages {
					total += len(p)
					if i < len(pages)-1 {
						assert.Len(t, p, size)
					}
				}
				assert.Equal(t, c.FilteredCount(), total)
				assert.Equal(t, len(pages), c.TotalPages())
			})
		}
	}
}

func TestController_SortIsIdempotent(t *testing.T) {
	c := newTicketController(t, makeTickets(40))
	require.NoError(t, c.SetSort(fieldProduct))
	once := c.FilteredItems()

	c.SetData(once)
	assert.Equal(t, SortSpec{Field: fieldProduct, Direction: Asc}, c.Sort())
	assert.Equal(t, ids(once), ids(c.FilteredItems()))
}

func TestController_DescendingIsReverseOfAscending(t *testing.T) {
	c := newTicketController(t, makeTickets(30))

	require.NoError(t, c.SetSort(fieldID))
	asc := ids(c.FilteredItems())

	require.NoError(t, c.SetSort(fieldID))
	assert.Equal(t, Desc, c.Sort().Direction)
	desc := ids(c.FilteredItems())

	slices.Reverse(asc)
	assert.Equal(t, asc, desc)

	require.NoError(t, c.SetSort(fieldID))
	assert.Equal(t, Asc, c.Sort().Direction)
}

func TestController_NewFieldStartsAscending(t *testing.T) {
	c := newTicketController(t, makeTickets(5))
	require.NoError(t, c.SetSort(fieldID))
	require.NoError(t, c.SetSort(fieldID))
	require.NoError(t, c.SetSort(fieldQuantity))

	assert.Equal(t, SortSpec{Field: fieldQuantity, Direction: Asc}, c.Sort())
}

func TestController_SortComparators(t *testing.T) {
	records := []ticket{
		{ID: "b", Product: "beta", Quantity: 10, Value: decimal.RequireFromString("9.50"), Date: "2024-10-01"},
		{ID: "a", Product: "Zeta", Quantity: 9, Value: decimal.RequireFromString("10.25"), Date: "2024-02-15"},
		{ID: "c", Product: "alpha", Quantity: 100, Value: decimal.RequireFromString("1"), Date: "2023-12-31"},
	}

	tests := []struct {
		field Field
		want  []string
	}{
		{fieldProduct, []string{"a", "c", "b"}},
		{fieldQuantity, []string{"a", "b", "c"}},
		{fieldValue, []string{"c", "b", "a"}},
		{fieldDate, []string{"c", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			c := newTicketController(t, records)
			require.NoError(t, c.SetSort(tt.field))
			assert.Equal(t, tt.want, ids(c.FilteredItems()))
		})
	}
}

func TestController_SortIsStable(t *testing.T) {
	records := []ticket{
		{ID: "1", Product: "same", Quantity: 2},
		{ID: "2", Product: "same", Quantity: 1},
		{ID: "3", Product: "same", Quantity: 2},
		{ID: "4", Product: "same", Quantity: 1},
	}
	c := newTicketController(t, records)

	require.NoError(t, c.SetSort(fieldQuantity))
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(c.FilteredItems()))

	require.NoError(t, c.SetSort(fieldQuantity))
	assert.Equal(t, []string{"1", "3", "2", "4"}, ids(c.FilteredItems()))
}

func TestController_SortKeepsPage(t *testing.T) {
	c := newTicketController(t, makeTickets(30))
	c.NextPage()
	c.NextPage()
	require.Equal(t, 3, c.Page())

	require.NoError(t, c.SetSort(fieldValue))
	assert.Equal(t, 3, c.Page())
}

func TestController_SortSurvivesSearch(t *testing.T) {
	c := newTicketController(t, makeTickets(40))
	require.NoError(t, c.SetSort(fieldQuantity))
	require.NoError(t, c.SetSort(fieldQuantity))

	c.SetSearchTerm("widget")
	items := c.FilteredItems()
	require.NotEmpty(t, items)
	assert.True(t, slices.IsSortedFunc(items, func(a, b ticket) int { return b.Quantity - a.Quantity }))
	assert.Equal(t, Desc, c.Sort().Direction)
}

func TestController_UnknownSortField(t *testing.T) {
	c := newTicketController(t, makeTickets(3))
	err := c.SetSort("colour")

	assert.ErrorIs(t, err, ErrUnknownSortField)
	assert.False(t, c.Sort().Active())
}

func TestController_Search(t *testing.T) {
	records := makeTickets(20)
	c := newTicketController(t, records)

	t.Run("empty term matches all", func(t *testing.T) {
		c.SetSearchTerm("")
		assert.Equal(t, ids(records), ids(c.FilteredItems()))
	})

	t.Run("case insensitive across fields", func(t *testing.T) {
		c.SetSearchTerm("GADGET")
		for _, r := range c.FilteredItems() {
			assert.Equal(t, "Gadget B", r.Product)
		}
		assert.Equal(t, 5, c.FilteredCount())

		c.SetSearchTerm("inq01")
		assert.Equal(t, []string{"INQ010", "INQ011", "INQ012", "INQ013", "INQ014", "INQ015", "INQ016", "INQ017", "INQ018", "INQ019"}, ids(c.FilteredItems()))

		c.SetSearchTerm("approved")
		for _, r := range c.FilteredItems() {
			assert.Equal(t, "Approved", r.Status)
		}
	})

	t.Run("never grows the set", func(t *testing.T) {
		for _, term := range []string{"a", "e", "zz", "INQ", "0", " "} {
			c.SetSearchTerm(term)
			assert.LessOrEqual(t, c.FilteredCount(), len(records))
		}
	})

	t.Run("keeps raw order", func(t *testing.T) {
		c.SetSearchTerm("pending")
		got := ids(c.FilteredItems())
		assert.True(t, slices.IsSorted(got))
	})

	t.Run("resets page", func(t *testing.T) {
		c.SetSearchTerm("")
		c.NextPage()
		require.Equal(t, 2, c.Page())
		c.SetSearchTerm("i")
		assert.Equal(t, 1, c.Page())
	})
}

func TestController_SearchWithoutSearchFields(t *testing.T) {
	schema := ticketSchema()
	schema.SearchFields = nil
	c, err := NewController(schema)
	require.NoError(t, err)
	c.SetData(makeTickets(5))

	c.SetSearchTerm("INQ")
	assert.Zero(t, c.FilteredCount())
	assert.Empty(t, c.CurrentPageItems())
	assert.Equal(t, 1, c.TotalPages())

	c.SetSearchTerm("")
	assert.Equal(t, 5, c.FilteredCount())
}

func TestController_FiltersComposeWithSearch(t *testing.T) {
	records := makeTickets(40)
	c := newTicketController(t, records)

	overdue := func(r ticket) bool { return r.Overdue > 0 }
	search := func(r ticket) bool { return strings.Contains(strings.ToLower(r.Product), "widget") }

	c.SetSearchTerm("Widget")
	c.SetFilter("overdue", overdue)

	var want []string
	for _, r := range records {
		if overdue(r) && search(r) {
			want = append(want, r.ID)
		}
	}
	assert.Equal(t, want, ids(c.FilteredItems()))
	assert.Equal(t, []string{"overdue"}, c.State().Filters)

	c.ClearFilter("overdue")
	assert.Equal(t, 10, c.FilteredCount())
}

func TestController_SetPageSize(t *testing.T) {
	c := newTicketController(t, makeTickets(60))
	c.NextPage()

	require.NoError(t, c.SetPageSize(25))
	assert.Equal(t, 1, c.Page())
	assert.Equal(t, 3, c.TotalPages())

	err := c.SetPageSize(7)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
	assert.Equal(t, 25, c.PageSize())
}

func TestController_GoToPageClamps(t *testing.T) {
	c := newTicketController(t, makeTickets(25))

	c.GoToPage(99)
	assert.Equal(t, 3, c.Page())
	c.GoToPage(-4)
	assert.Equal(t, 1, c.Page())
}

func TestController_DoesNotMutateRaw(t *testing.T) {
	records := makeTickets(15)
	original := slices.Clone(records)
	c := newTicketController(t, records)

	require.NoError(t, c.SetSort(fieldProduct))
	c.SetSearchTerm("b")
	items := c.CurrentPageItems()
	if len(items) > 0 {
		items[0].ID = "changed"
	}

	assert.Equal(t, original, records)
	assert.NotEqual(t, "changed", c.FilteredItems()[0].ID)
}

func TestController_Reset(t *testing.T) {
	c := newTicketController(t, makeTickets(30))
	c.SetSearchTerm("widget")
	require.NoError(t, c.SetSort(fieldID))
	require.NoError(t, c.SetPageSize(25))
	c.SetFilter("x", func(ticket) bool { return true })

	c.Reset()

	state := c.State()
	assert.Equal(t, "", state.SearchTerm)
	assert.False(t, state.Sort.Active())
	assert.Empty(t, state.Filters)
	assert.Equal(t, 10, state.PageSize)
	assert.Equal(t, 30, state.TotalCount)
	assert.Equal(t, 3, state.TotalPages)
}

func TestController_ShrinkingDataClampsPage(t *testing.T) {
	c := newTicketController(t, makeTickets(30))
	c.GoToPage(3)

	c.SetFilter("first", func(r ticket) bool { return r.ID == "INQ001" })
	assert.Equal(t, 1, c.Page())
	assert.Equal(t, 1, c.TotalPages())
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema[ticket]
		ok     bool
	}{
		{"defaults", Schema[ticket]{Name: "t"}, true},
		{"missing name", Schema[ticket]{}, false},
		{"default not allowed", Schema[ticket]{Name: "t", PageSizes: []int{6, 12}, DefaultPageSize: 10}, false},
		{"nil comparator", Schema[ticket]{Name: "t", SortFields: map[Field]Comparator[ticket]{"id": nil}}, false},
		{"zero page size", Schema[ticket]{Name: "t", PageSizes: []int{0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
