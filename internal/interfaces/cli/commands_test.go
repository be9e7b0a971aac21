package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/portal/internal/application/identity"
	appportal "github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/domain/table"
	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/erp/portal/internal/interfaces/http/handler"
)

// portalStub imitates the portal API for one list tab.
type portalStub struct {
	mu    sync.Mutex
	paths []string
	view  appportal.TabView
}

func newPortalStub(t *testing.T) (*portalStub, *httptest.Server) {
	t.Helper()
	s := &portalStub{view: appportal.TabView{
		TabStatus: appportal.TabStatus{Tab: portal.TabPayments, Loaded: true},
		ListView: appportal.ListView{
			Items:      []any{map[string]any{"invoice_number": "INV-2024-0001", "status": "Overdue"}},
			Page:       1,
			PageSize:   10,
			TotalPages: 3,
			SortFields: []table.Field{"amount", "daysOverdue"},
			Filters:    map[string]string{},
		},
	}}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *portalStub) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	s.paths = append(s.paths, r.Method+" "+path)

	if path != "/auth/login" && r.Header.Get("Authorization") != "Bearer tok" {
		writeEnvelope(w, http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrCodeUnauthorized, "missing token"))
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch {
	case path == "/auth/login":
		writeEnvelope(w, http.StatusOK, dto.NewSuccessResponse(handler.LoginResponse{
			SessionID: "s1",
			Token:     handler.TokenResponse{AccessToken: "tok", TokenType: "Bearer"},
			User:      identity.UserInfo{CustomerID: "CUST001", Name: "John Smith", Initials: "JS"},
		}))
	case path == "/auth/logout":
		writeEnvelope(w, http.StatusOK, dto.NewSuccessResponse(handler.LogoutResponse{Message: "Logged out successfully"}))
	case path == "/portal/profile":
		writeEnvelope(w, http.StatusOK, dto.NewSuccessResponse(handler.ProfileResponse{
			UserInfo: identity.UserInfo{CustomerID: "CUST001", Name: "John Smith", Initials: "JS", Company: "Acme Corp"},
			Tabs: []appportal.TabStatus{
				{Tab: portal.TabInquiries, Loaded: true},
				{Tab: portal.TabOrders, LastError: "Failed to fetch orders"},
			},
		}))
	case path == "/portal/analytics":
		writeEnvelope(w, http.StatusOK, dto.NewSuccessResponse(appportal.AnalyticsView{
			TabStatus: appportal.TabStatus{Tab: portal.TabAnalytics, Loaded: true},
			Data: portal.SalesAnalytics{
				TotalRevenue: decimal.NewFromInt(50000),
				MonthlySales: []portal.MonthlySales{{Month: "Jan", Sales: decimal.NewFromInt(30000)}},
				ProductSales: []portal.ProductSales{{Product: "Widget A", Sales: decimal.NewFromInt(50000)}},
			},
			MaxMonthlySales: decimal.NewFromInt(30000),
			ProductShares:   map[string]decimal.Decimal{"Widget A": decimal.NewFromInt(100)},
		}))
	case strings.HasSuffix(path, "/export"):
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="payments.csv"`)
		_, _ = w.Write([]byte("Invoice Number\nINV-2024-0001\n"))
	case strings.HasSuffix(path, "/pdf"):
		w.Header().Set("Content-Type", portal.ContentTypePDF)
		w.Header().Set("Content-Disposition", `attachment; filename="invoice-INV001.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4"))
	case strings.HasPrefix(path, "/portal/tabs/"):
		s.applyTabAction(path, body)
		writeEnvelope(w, http.StatusOK, dto.NewSuccessResponse(s.view))
	default:
		writeEnvelope(w, http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeNotFound, "no route"))
	}
}

func (s *portalStub) applyTabAction(path string, body map[string]any) {
	action := path[strings.LastIndex(path, "/")+1:]
	switch action {
	case "search":
		s.view.SearchTerm, _ = body["term"].(string)
		s.view.Page = 1
	case "sort":
		field, _ := body["field"].(string)
		if s.view.Sort.Field == table.Field(field) {
			s.view.Sort.Direction = s.view.Sort.Direction.Toggle()
		} else {
			s.view.Sort = table.SortSpec{Field: table.Field(field), Direction: table.Asc}
		}
	case "page":
		page, _ := body["page"].(float64)
		s.view.Page = int(page)
	case "page-size":
		size, _ := body["size"].(float64)
		s.view.PageSize = int(size)
		s.view.Page = 1
	case "filter":
		name, _ := body["name"].(string)
		value, _ := body["value"].(string)
		s.view.Filters[name] = value
		s.view.Page = 1
	}
}

func (s *portalStub) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func writeEnvelope(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type cliEnv struct {
	server string
	config string
}

func newCLIEnv(t *testing.T, server string, token string) cliEnv {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "portalctl", "config.yaml")
	if token != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(cfg), 0o700))
		require.NoError(t, os.WriteFile(cfg, []byte("token: "+token+"\n"), 0o600))
	}
	return cliEnv{server: server, config: cfg}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", e.config, "--server", e.server))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginCmd_StoresTokenNotPassword(t *testing.T) {
	_, srv := newPortalStub(t)
	env := newCLIEnv(t, srv.URL, "")

	out, err := env.run(t, "login", "--customer-id", "CUST001", "--password", "secret")

	require.NoError(t, err)
	assert.Equal(t, "Logged in as John Smith (CUST001)\n", out)
	raw, err := os.ReadFile(env.config)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "token: tok")
	assert.Contains(t, string(raw), "customer_id: CUST001")
	assert.NotContains(t, string(raw), "secret")
}

func TestLogoutCmd_ForgetsToken(t *testing.T) {
	_, srv := newPortalStub(t)
	env := newCLIEnv(t, srv.URL, "tok")

	out, err := env.run(t, "logout")

	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	raw, err := os.ReadFile(env.config)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "token: tok")
}

func TestCommands_RequireLogin(t *testing.T) {
	stub, srv := newPortalStub(t)
	env := newCLIEnv(t, srv.URL, "")

	_, err := env.run(t, "profile")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
	assert.Empty(t, stub.calls())
}

func TestProfileCmd(t *testing.T) {
	_, srv := newPortalStub(t)
	env := newCLIEnv(t, srv.URL, "tok")

	out, err := env.run(t, "profile")

	require.NoError(t, err)
	assert.Contains(t, out, "[JS] John Smith")
	assert.Contains(t, out, "Acme Corp")
	assert.Contains(t, out, "failed: Failed to fetch orders")
}

func TestTabCmd(t *testing.T) {
	t.Run("applies options in order", func(t *testing.T) {
		stub, srv := newPortalStub(t)
		env := newCLIEnv(t, srv.URL, "tok")

		out, err := env.run(t, "tab", "payments",
			"--filter", "category=overdue", "--search", "INV", "--sort", "daysOverdue", "--desc",
			"--page-size", "25", "--page", "2")

		require.NoError(t, err)
		assert.Equal(t, []string{
			"POST /portal/tabs/payments/activate",
			"PUT /portal/tabs/payments/filter",
			"PUT /portal/tabs/payments/search",
			"POST /portal/tabs/payments/sort",
			"POST /portal/tabs/payments/sort",
			"PUT /portal/tabs/payments/page-size",
			"PUT /portal/tabs/payments/page",
		}, stub.calls())
		assert.Contains(t, out, "INV-2024-0001")
		assert.Contains(t, out, "sorted by daysOverdue desc")
		assert.Contains(t, out, "category=overdue")
	})

	t.Run("ascending sort needs one call", func(t *testing.T) {
		stub, srv := newPortalStub(t)
		env := newCLIEnv(t, srv.URL, "tok")

		_, err := env.run(t, "tab", "payments", "--sort", "amount")

		require.NoError(t, err)
		assert.Len(t, stub.calls(), 2)
	})

	t.Run("json output", func(t *testing.T) {
		_, srv := newPortalStub(t)
		env := newCLIEnv(t, srv.URL, "tok")

		out, err := env.run(t, "tab", "payments", "-o", "json")

		require.NoError(t, err)
		var view appportal.TabView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, portal.TabPayments, view.Tab)
	})

	t.Run("analytics is not a list", func(t *testing.T) {
		stub, srv := newPortalStub(t)
		env := newCLIEnv(t, srv.URL, "tok")

		_, err := env.run(t, "tab", "analytics")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown list tab")
		assert.Empty(t, stub.calls())
	})

	t.Run("malformed filter", func(t *testing.T) {
		_, srv := newPortalStub(t)
		env := newCLIEnv(t, srv.URL, "tok")

		_, err := env.run(t, "tab", "payments", "--filter", "overdue")

		assert.EqualError(t, err, `filter "overdue" must be name=value`)
	})
}

func TestExportCmd(t *testing.T) {
	stub, srv := newPortalStub(t)
	env := newCLIEnv(t, srv.URL, "tok")
	dir := t.TempDir()

	out, err := env.run(t, "export", "payments", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "payments.csv")
	raw, err := os.ReadFile(filepath.Join(dir, "payments.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "INV-2024-0001")
	assert.Equal(t, "GET /portal/tabs/payments/export", stub.calls()[1])

	_, err = env.run(t, "export", "payments", "--format", "pdf")
	assert.EqualError(t, err, `unsupported format "pdf"`)
}

func TestInvoiceDownloadCmd(t *testing.T) {
	stub, srv := newPortalStub(t)
	env := newCLIEnv(t, srv.URL, "tok")
	dir := t.TempDir()

	_, err := env.run(t, "invoice", "download", "INV001", "--dir", dir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"POST /portal/tabs/invoices/activate",
		"GET /portal/invoices/INV001/pdf",
	}, stub.calls())
	raw, err := os.ReadFile(filepath.Join(dir, "invoice-INV001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(raw))
}

func TestAnalyticsCmd(t *testing.T) {
	_, srv := newPortalStub(t)
	env := newCLIEnv(t, srv.URL, "tok")

	out, err := env.run(t, "analytics")

	require.NoError(t, err)
	assert.Contains(t, out, "Total revenue: 50000.00")
	assert.Contains(t, out, "Widget A")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, strings.Repeat("█", 30))
}

func TestRootCmd_RejectsUnknownOutput(t *testing.T) {
	_, srv := newPortalStub(t)
	env := newCLIEnv(t, srv.URL, "tok")

	_, err := env.run(t, "profile", "-o", "xml")

	assert.Error(t, err)
}
