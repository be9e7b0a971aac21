package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	appportal "github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/domain/table"
)

func (a *app) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.client()
			resp, err := c.Login(cmd.Context(), a.v.GetString(keyCustomerID), a.v.GetString(keyPassword))
			if err != nil {
				return err
			}
			a.v.Set(keyToken, c.Token())
			if err := a.saveConfig(); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			if a.output.value != OutputTable {
				return printStructured(a.out, a.output.value, resp.User)
			}
			_, err = fmt.Fprintf(a.out, "Logged in as %s (%s)\n", resp.User.Name, resp.User.CustomerID)
			return err
		},
	}
}

func (a *app) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client().Logout(cmd.Context()); err != nil {
				return err
			}
			a.v.Set(keyToken, "")
			if err := a.saveConfig(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, "Logged out")
			return err
		},
	}
}

func (a *app) newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the customer profile and tab states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.client().Profile(cmd.Context())
			if err != nil {
				return err
			}
			if a.output.value != OutputTable {
				return printStructured(a.out, a.output.value, p)
			}
			fmt.Fprintf(a.out, "[%s] %s\n%s\n%s\n%s\n%s\n\n", p.Initials, p.Name, p.Company, p.Email, p.Phone, p.Address)
			body := make([][]string, 0, len(p.Tabs))
			for _, t := range p.Tabs {
				body = append(body, []string{string(t.Tab), tabState(t)})
			}
			return renderTable(a.out, []string{"Tab", "State"}, body)
		},
	}
}

func tabState(t appportal.TabStatus) string {
	switch {
	case t.Loading:
		return "loading"
	case t.LastError != "":
		return "failed: " + t.LastError
	case t.Loaded:
		return "loaded"
	default:
		return "not loaded"
	}
}

func parseListTab(name string) (portal.Tab, error) {
	tab, ok := portal.ParseTab(name)
	if !ok || !tab.IsList() {
		names := make([]string, 0, len(portal.AllTabs))
		for _, t := range portal.AllTabs {
			if t.IsList() {
				names = append(names, string(t))
			}
		}
		return "", fmt.Errorf("unknown list tab %q (one of %s)", name, strings.Join(names, ", "))
	}
	return tab, nil
}

func (a *app) newTabCmd() *cobra.Command {
	var (
		search   string
		sortBy   string
		desc     bool
		pageSize int
		page     int
		filters  []string
	)
	cmd := &cobra.Command{
		Use:   "tab <name>",
		Short: "Show one page of a list tab",
		Long: `Load a list tab and print one page of it. The workspace keeps search,
sort and paging between calls until it is reloaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := parseListTab(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c := a.client()

			view, err := c.Activate(ctx, tab)
			if err != nil {
				return err
			}
			for _, f := range filters {
				name, value, ok := strings.Cut(f, "=")
				if !ok {
					return fmt.Errorf("filter %q must be name=value", f)
				}
				if view, err = c.SetFilter(ctx, tab, name, value); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("search") {
				if view, err = c.Search(ctx, tab, search); err != nil {
					return err
				}
			}
			if sortBy != "" {
				want := table.Asc
				if desc {
					want = table.Desc
				}
				// Sorting by the active field flips it, so at most two calls
				// reach the wanted direction.
				for range 2 {
					if view.Sort.Field == table.Field(sortBy) && view.Sort.Direction == want {
						break
					}
					if view, err = c.Sort(ctx, tab, sortBy); err != nil {
						return err
					}
				}
			}
			if pageSize > 0 {
				if view, err = c.SetPageSize(ctx, tab, pageSize); err != nil {
					return err
				}
			}
			if page > 0 {
				if view, err = c.GoToPage(ctx, tab, page); err != nil {
					return err
				}
			}
			return printView(a.out, a.output.value, view)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Search term; empty clears it")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Field to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Rows per page")
	cmd.Flags().IntVar(&page, "page", 0, "Page to show")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter as name=value, e.g. category=overdue")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	var (
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export <tab>",
		Short: "Download the filtered rows of a list tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := parseListTab(args[0])
			if err != nil {
				return err
			}
			f, ok := portal.ParseSheetFormat(format)
			if !ok {
				return fmt.Errorf("unsupported format %q", format)
			}
			c := a.client()
			if _, err := c.Activate(cmd.Context(), tab); err != nil {
				return err
			}
			doc, err := c.Export(cmd.Context(), tab, f)
			if err != nil {
				return err
			}
			return a.writeDocument(outDir, doc)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(portal.FormatCSV), "csv or xlsx")
	cmd.Flags().StringVar(&outDir, "dir", ".", "Directory to write the file to")
	return cmd
}

func (a *app) newInvoiceCmd() *cobra.Command {
	invoice := &cobra.Command{
		Use:   "invoice",
		Short: "Invoice documents",
	}
	var outDir string
	download := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the PDF of an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			if _, err := c.Activate(cmd.Context(), portal.TabInvoices); err != nil {
				return err
			}
			doc, err := c.DownloadInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.writeDocument(outDir, doc)
		},
	}
	download.Flags().StringVar(&outDir, "dir", ".", "Directory to write the PDF to")
	invoice.AddCommand(download)
	return invoice
}

func (a *app) writeDocument(dir string, doc portal.Document) error {
	name := filepath.Base(doc.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return errors.New("server sent no file name")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, len(doc.Body))
	return err
}

func (a *app) newAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show sales analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.client()
			if _, err := c.Activate(cmd.Context(), portal.TabAnalytics); err != nil {
				return err
			}
			view, err := c.Analytics(cmd.Context())
			if err != nil {
				return err
			}
			if a.output.value != OutputTable {
				return printStructured(a.out, a.output.value, view)
			}

			body := make([][]string, 0, len(view.Data.MonthlySales))
			for _, m := range view.Data.MonthlySales {
				body = append(body, []string{m.Month, m.Sales.StringFixed(2), bar(m.Sales.InexactFloat64(), view.MaxMonthlySales.InexactFloat64())})
			}
			fmt.Fprintf(a.out, "Total revenue: %s\n", view.Data.TotalRevenue.StringFixed(2))
			if err := renderTable(a.out, []string{"Month", "Sales", ""}, body); err != nil {
				return err
			}

			shares := make([][]string, 0, len(view.Data.ProductSales))
			for _, p := range view.Data.ProductSales {
				shares = append(shares, []string{p.Product, p.Sales.StringFixed(2), view.ProductShares[p.Product].StringFixed(1) + "%"})
			}
			return renderTable(a.out, []string{"Product", "Sales", "Share"}, shares)
		},
	}
}

// bar draws value as a block bar scaled against limit.
func bar(value, limit float64) string {
	const width = 30
	if limit <= 0 {
		return ""
	}
	n := int(value / limit * width)
	return strings.Repeat("█", n)
}
