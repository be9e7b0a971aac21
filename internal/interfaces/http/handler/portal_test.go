package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appportal "github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/domain/table"
	"github.com/erp/portal/internal/infrastructure/export"
	"github.com/erp/portal/internal/infrastructure/mockdata"
	"github.com/erp/portal/internal/interfaces/http/dto"
)

type tabPage struct {
	Tab           portal.Tab        `json:"tab"`
	Loading       bool              `json:"loading"`
	Loaded        bool              `json:"loaded"`
	Items         []map[string]any  `json:"items"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	TotalPages    int               `json:"total_pages"`
	FilteredCount int               `json:"filtered_count"`
	TotalCount    int               `json:"total_count"`
	SearchTerm    string            `json:"search_term"`
	Sort          table.SortSpec    `json:"sort"`
	Filters       map[string]string `json:"filters"`
}

func decodeTab(t *testing.T, w *httptest.ResponseRecorder) tabPage {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data tabPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

// loggedIn returns a server and token with tab loaded.
func loggedIn(t *testing.T, tab portal.Tab) (*testServer, string) {
	t.Helper()
	s := newTestServer(t)
	token := s.login(t).Token.AccessToken
	w := s.do(t, http.MethodPost, "/api/v1/portal/tabs/"+string(tab)+"/activate?wait=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return s, token
}

func TestPortalHandler_Profile(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t).Token.AccessToken

	w := s.do(t, http.MethodGet, "/api/v1/portal/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ProfileResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "John Smith", resp.Data.Name)
	assert.Equal(t, "JS", resp.Data.Initials)
	assert.Len(t, resp.Data.Tabs, len(portal.AllTabs))
	assert.Equal(t, 1, s.registry.Len())
}

func TestPortalHandler_ActivateAndGet(t *testing.T) {
	s, token := loggedIn(t, portal.TabPayments)

	page := decodeTab(t, s.do(t, http.MethodGet, "/api/v1/portal/tabs/payments", token, nil))
	assert.True(t, page.Loaded)
	assert.False(t, page.Loading)
	assert.Equal(t, mockdata.PaymentCount, page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 3, page.TotalPages)

	item := page.Items[0]
	assert.Contains(t, []any{"On Time", "Overdue"}, item["status"])
	assert.NotEmpty(t, item["aging_class"])

	t.Run("activating again keeps loaded data", func(t *testing.T) {
		page := decodeTab(t, s.do(t, http.MethodPost, "/api/v1/portal/tabs/payments/activate", token, nil))
		assert.True(t, page.Loaded)
	})

	t.Run("unknown tab", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/portal/tabs/nope/activate", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, errorOf(t, w).Code)
	})

	t.Run("tab list", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/portal/tabs", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []appportal.TabStatus `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, len(portal.AllTabs))
	})
}

func TestPortalHandler_ListOperations(t *testing.T) {
	s, token := loggedIn(t, portal.TabPayments)
	base := "/api/v1/portal/tabs/payments"

	t.Run("paging", func(t *testing.T) {
		page := decodeTab(t, s.do(t, http.MethodPost, base+"/next", token, nil))
		assert.Equal(t, 2, page.Page)

		page = decodeTab(t, s.do(t, http.MethodPut, base+"/page", token, PageRequest{Page: 99}))
		assert.Equal(t, 3, page.Page)
		assert.Len(t, page.Items, 5)

		page = decodeTab(t, s.do(t, http.MethodPost, base+"/next", token, nil))
		assert.Equal(t, 3, page.Page)

		page = decodeTab(t, s.do(t, http.MethodPost, base+"/prev", token, nil))
		assert.Equal(t, 2, page.Page)
	})

	t.Run("sort toggles and keeps page", func(t *testing.T) {
		page := decodeTab(t, s.do(t, http.MethodPost, base+"/sort", token, SortRequest{Field: "daysOverdue"}))
		assert.Equal(t, table.SortSpec{Field: "daysOverdue", Direction: table.Asc}, page.Sort)
		assert.Equal(t, 2, page.Page)

		page = decodeTab(t, s.do(t, http.MethodPost, base+"/sort", token, SortRequest{Field: "daysOverdue"}))
		assert.Equal(t, table.Desc, page.Sort.Direction)
	})

	t.Run("unknown sort field", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/sort", token, SortRequest{Field: "color"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeUnknownSortField, errorOf(t, w).Code)
	})

	t.Run("page size resets page", func(t *testing.T) {
		page := decodeTab(t, s.do(t, http.MethodPut, base+"/page-size", token, PageSizeRequest{Size: 25}))
		assert.Equal(t, 25, page.PageSize)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 1, page.TotalPages)

		w := s.do(t, http.MethodPut, base+"/page-size", token, PageSizeRequest{Size: 7})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidPageSize, errorOf(t, w).Code)
	})

	t.Run("category filter", func(t *testing.T) {
		page := decodeTab(t, s.do(t, http.MethodPut, base+"/filter", token, FilterRequest{Name: "category", Value: "overdue"}))
		assert.Equal(t, map[string]string{"category": "overdue"}, page.Filters)
		for _, item := range page.Items {
			assert.Equal(t, "Overdue", item["status"])
		}
		overdue := page.FilteredCount

		page = decodeTab(t, s.do(t, http.MethodPut, base+"/filter", token, FilterRequest{Name: "category", Value: "on-time"}))
		assert.Equal(t, mockdata.PaymentCount, overdue+page.FilteredCount)

		page = decodeTab(t, s.do(t, http.MethodPut, base+"/filter", token, FilterRequest{Name: "category", Value: "all"}))
		assert.Empty(t, page.Filters)
		assert.Equal(t, mockdata.PaymentCount, page.FilteredCount)

		w := s.do(t, http.MethodPut, base+"/filter", token, FilterRequest{Name: "category", Value: "late"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, errorOf(t, w).Code)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		page := decodeTab(t, s.do(t, http.MethodPut, base+"/search", token, SearchRequest{Term: "zz-no-match"}))
		assert.Equal(t, 0, page.FilteredCount)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 1, page.TotalPages)
		assert.Empty(t, page.Items)

		page = decodeTab(t, s.do(t, http.MethodPut, base+"/search", token, SearchRequest{Term: ""}))
		assert.Equal(t, mockdata.PaymentCount, page.FilteredCount)
	})

	t.Run("missing body fields", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/sort", token, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorOf(t, w).Code)
	})

	t.Run("analytics is not a list", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/portal/tabs/analytics/next", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, errorOf(t, w).Code)
	})
}

func TestPortalHandler_Export(t *testing.T) {
	s, token := loggedIn(t, portal.TabPayments)

	t.Run("csv by default", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/portal/tabs/payments/export", token, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, export.ContentTypeCSV, w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="payments.csv"`, w.Header().Get("Content-Disposition"))
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("xlsx", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/portal/tabs/payments/export?format=xlsx", token, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
		assert.Equal(t, []byte("PK"), w.Body.Bytes()[:2])
	})

	t.Run("unsupported format", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/portal/tabs/payments/export?format=pdf", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, errorOf(t, w).Code)
	})
}

func TestPortalHandler_DownloadInvoice(t *testing.T) {
	s, token := loggedIn(t, portal.TabInvoices)

	page := decodeTab(t, s.do(t, http.MethodGet, "/api/v1/portal/tabs/invoices", token, nil))
	assert.Equal(t, 6, page.PageSize)
	require.NotEmpty(t, page.Items)
	id := page.Items[0]["id"].(string)
	number := page.Items[0]["number"].(string)

	w := s.do(t, http.MethodGet, "/api/v1/portal/invoices/"+id+"/pdf", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, portal.ContentTypePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoice-`+number+`.pdf"`, w.Header().Get("Content-Disposition"))

	w = s.do(t, http.MethodGet, "/api/v1/portal/invoices/INV999/pdf", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPortalHandler_Analytics(t *testing.T) {
	s, token := loggedIn(t, portal.TabAnalytics)

	w := s.do(t, http.MethodGet, "/api/v1/portal/analytics", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Loaded          bool   `json:"loaded"`
			MaxMonthlySales string `json:"max_monthly_sales"`
			Data            struct {
				MonthlySales []any `json:"monthly_sales"`
			} `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Loaded)
	assert.NotEqual(t, "0", resp.Data.MaxMonthlySales)
}

func TestPortalHandler_Reload(t *testing.T) {
	s, token := loggedIn(t, portal.TabPayments)
	decodeTab(t, s.do(t, http.MethodPut, "/api/v1/portal/tabs/payments/search", token, SearchRequest{Term: "x"}))

	w := s.do(t, http.MethodPost, "/api/v1/portal/reload", token, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	page := decodeTab(t, s.do(t, http.MethodGet, "/api/v1/portal/tabs/payments", token, nil))
	assert.False(t, page.Loaded)
	assert.Empty(t, page.SearchTerm)
	assert.Equal(t, 0, page.TotalCount)
}

func TestPortalHandler_LogoutDropsWorkspace(t *testing.T) {
	s, token := loggedIn(t, portal.TabPayments)
	require.Equal(t, 1, s.registry.Len())

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil).Code)

	assert.Eventually(t, func() bool { return s.registry.Len() == 0 }, time.Second, 10*time.Millisecond)

	w := s.do(t, http.MethodGet, "/api/v1/portal/tabs/payments", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
