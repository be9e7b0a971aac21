package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	appportal "github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/portal"
)

// Output formats
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// outputFormat is a pflag.Value restricted to the supported formats.
type outputFormat struct {
	value   string
	allowed []string
}

func newOutputFormat() *outputFormat {
	return &outputFormat{value: OutputTable, allowed: []string{OutputTable, OutputJSON, OutputYAML}}
}

func (o *outputFormat) String() string { return o.value }

func (o *outputFormat) Set(v string) error {
	v = strings.ToLower(v)
	if !slices.Contains(o.allowed, v) {
		return fmt.Errorf("must be one of %s", strings.Join(o.allowed, "|"))
	}
	o.value = v
	return nil
}

func (o *outputFormat) Type() string { return "format" }

// column maps a JSON field of a tab row to a table header.
type column struct {
	header string
	key    string
}

var tabColumns = map[portal.Tab][]column{
	portal.TabInquiries: {
		{"ID", "id"}, {"Date", "date"}, {"Product", "product"}, {"Qty", "quantity"},
		{"Value", "value"}, {"Status", "status"},
	},
	portal.TabOrders: {
		{"ID", "id"}, {"Date", "date"}, {"Product", "product"}, {"Qty", "quantity"},
		{"Amount", "amount"}, {"Status", "status"},
	},
	portal.TabDeliveries: {
		{"ID", "id"}, {"Order", "order_number"}, {"Date", "date"}, {"Product", "product"},
		{"Qty", "quantity"}, {"Status", "status"}, {"Tracking", "tracking_number"},
	},
	portal.TabInvoices: {
		{"ID", "id"}, {"Number", "number"}, {"Date", "date"}, {"Due", "due_date"},
		{"Amount", "amount"}, {"Status", "status"},
	},
	portal.TabPayments: {
		{"Invoice", "invoice_number"}, {"Amount", "amount"}, {"Due", "due_date"},
		{"Days Overdue", "days_overdue"}, {"Status", "status"},
	},
	portal.TabMemos: {
		{"Type", "type"}, {"Number", "number"}, {"Date", "date"}, {"Amount", "amount"},
		{"Reason", "reason"}, {"Status", "status"},
	},
}

func headers(tab portal.Tab) []string {
	cols := tabColumns[tab]
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

func rows(tab portal.Tab, items []any) [][]string {
	cols := tabColumns[tab]
	out := make([][]string, 0, len(items))
	for _, item := range items {
		fields, _ := item.(map[string]any)
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cell(fields[c.key])
		}
		out = append(out, row)
	}
	return out
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%.2f", t)
	default:
		return fmt.Sprint(t)
	}
}

// summary is the one-line paging state under a list.
func summary(v *appportal.TabView) string {
	parts := []string{
		fmt.Sprintf("Page %d/%d", v.Page, v.TotalPages),
		fmt.Sprintf("%d of %d records", v.FilteredCount, v.TotalCount),
	}
	if v.Sort.Active() {
		parts = append(parts, fmt.Sprintf("sorted by %s %s", v.Sort.Field, v.Sort.Direction))
	}
	if v.SearchTerm != "" {
		parts = append(parts, fmt.Sprintf("search %q", v.SearchTerm))
	}
	for _, name := range sortedKeys(v.Filters) {
		parts = append(parts, fmt.Sprintf("%s=%s", name, v.Filters[name]))
	}
	return strings.Join(parts, " · ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func renderTable(w io.Writer, head []string, body [][]string) error {
	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(head...).
		Rows(body...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// printStructured writes v as JSON or YAML. YAML keys follow the JSON field
// names.
func printStructured(w io.Writer, format string, v any) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func printView(w io.Writer, format string, v *appportal.TabView) error {
	if format != OutputTable {
		return printStructured(w, format, v)
	}
	if err := renderTable(w, headers(v.Tab), rows(v.Tab, v.Items)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, summary(v))
	return err
}
