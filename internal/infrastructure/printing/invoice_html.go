package printing

import (
	"bytes"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/erp/portal/internal/domain/portal"
)

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.Invoice.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 20px; margin-bottom: 4px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border-bottom: 1px solid #ddd; padding: 6px; text-align: left; }
td.num, th.num { text-align: right; }
.total { font-weight: bold; }
</style>
</head>
<body>
<h1>Invoice {{.Invoice.Number}}</h1>
<div>Invoice ID: {{.Invoice.ID}}</div>
<div>Date: {{.Invoice.Date}} &middot; Due: {{.Invoice.DueDate}}</div>
<div>Status: {{.Invoice.Status}}</div>
<table>
<thead><tr><th>Description</th><th class="num">Qty</th><th class="num">Unit Price</th><th class="num">Total</th></tr></thead>
<tbody>
{{range .Invoice.Items}}<tr><td>{{.Description}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .UnitPrice}}</td><td class="num">{{money .Total}}</td></tr>
{{end}}<tr class="total"><td colspan="3">Amount due</td><td class="num">{{money .Invoice.Amount}}</td></tr>
</tbody>
</table>
</body>
</html>`))

type invoiceView struct {
	Invoice portal.Invoice
}

// RenderInvoiceHTML renders the printable HTML page of an invoice.
func RenderInvoiceHTML(inv portal.Invoice) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, invoiceView{Invoice: inv}); err != nil {
		return "", NewRenderError(ErrCodeTemplate, "failed to render invoice template", err)
	}
	return buf.String(), nil
}
