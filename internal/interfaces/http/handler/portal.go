package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	appidentity "github.com/erp/portal/internal/application/identity"
	appportal "github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// maxAwait bounds how long activate?wait=true holds a request open.
const maxAwait = 30 * time.Second

// PortalHandler serves the workspace of the current session
type PortalHandler struct {
	BaseHandler
	authService *appidentity.AuthService
	registry    *appportal.Registry
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(authService *appidentity.AuthService, registry *appportal.Registry) *PortalHandler {
	return &PortalHandler{
		authService: authService,
		registry:    registry,
	}
}

// workspace returns the workspace of the current session, opening it on
// first use. It writes the error response itself when it returns false.
func (h *PortalHandler) workspace(c *gin.Context) (*identity.Session, *appportal.Workspace, bool) {
	session, err := currentSession(c, h.authService)
	if err != nil {
		h.HandleError(c, err)
		return nil, nil, false
	}
	return session, h.registry.Open(session), true
}

func tabParam(c *gin.Context) portal.Tab {
	return portal.Tab(c.Param("tab"))
}

// GetProfile godoc
// @Summary      Get profile
// @Description  Customer profile with initials and the load state of every tab
// @Tags         portal
// @Produce      json
// @Success      200 {object} dto.Response{data=ProfileResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/profile [get]
func (h *PortalHandler) GetProfile(c *gin.Context) {
	session, ws, ok := h.workspace(c)
	if !ok {
		return
	}
	user, loggedIn := h.authService.CurrentUser(c.Request.Context(), session)
	if !loggedIn {
		h.HandleError(c, identity.ErrNotLoggedIn)
		return
	}

	h.Success(c, ProfileResponse{
		UserInfo: appidentity.ToUserInfo(user),
		Tabs:     tabStatuses(ws),
	})
}

// ListTabs godoc
// @Summary      List tabs
// @Description  Load state of every tab
// @Tags         portal
// @Produce      json
// @Success      200 {object} dto.Response{data=[]appportal.TabStatus}
// @Security     BearerAuth
// @Router       /portal/tabs [get]
func (h *PortalHandler) ListTabs(c *gin.Context) {
	_, ws, ok := h.workspace(c)
	if !ok {
		return
	}
	h.Success(c, tabStatuses(ws))
}

func tabStatuses(ws *appportal.Workspace) []appportal.TabStatus {
	out := make([]appportal.TabStatus, 0, len(portal.AllTabs))
	for _, tab := range portal.AllTabs {
		if st, err := ws.Status(tab); err == nil {
			out = append(out, st)
		}
	}
	return out
}

// ActivateTab godoc
// @Summary      Activate tab
// @Description  Start loading a tab; with wait=true the call returns once the load completes
// @Tags         portal
// @Produce      json
// @Param        tab path string true "Tab name"
// @Param        wait query bool false "Wait for the load to complete"
// @Success      200 {object} dto.Response
// @Success      202 {object} dto.Response{data=appportal.TabStatus}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/activate [post]
func (h *PortalHandler) ActivateTab(c *gin.Context) {
	_, ws, ok := h.workspace(c)
	if !ok {
		return
	}
	tab := tabParam(c)
	if err := ws.Activate(tab); err != nil {
		h.HandleError(c, err)
		return
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		ctx, cancel := context.WithTimeout(c.Request.Context(), maxAwait)
		defer cancel()
		if err := ws.Await(ctx, tab); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	st, err := ws.Status(tab)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if st.Loading {
		h.Accepted(c, st)
		return
	}
	h.renderTab(c, ws, tab)
}

// GetTab godoc
// @Summary      Get tab
// @Description  Load state and visible page of a tab
// @Tags         portal
// @Produce      json
// @Param        tab path string true "Tab name"
// @Success      200 {object} dto.Response{data=appportal.TabView}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab} [get]
func (h *PortalHandler) GetTab(c *gin.Context) {
	_, ws, ok := h.workspace(c)
	if !ok {
		return
	}
	h.renderTab(c, ws, tabParam(c))
}

func (h *PortalHandler) renderTab(c *gin.Context, ws *appportal.Workspace, tab portal.Tab) {
	if tab == portal.TabAnalytics {
		h.Success(c, ws.Analytics())
		return
	}
	view, err := ws.Tab(tab)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SetSearch godoc
// @Summary      Search tab
// @Description  Set the search term of a list tab and return page 1
// @Tags         portal
// @Accept       json
// @Produce      json
// @Param        tab path string true "Tab name"
// @Param        request body SearchRequest true "Search term"
// @Success      200 {object} dto.Response{data=appportal.TabView}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/search [put]
func (h *PortalHandler) SetSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.mutate(c, func(ws *appportal.Workspace, tab portal.Tab) (appportal.TabView, error) {
		return ws.Search(tab, req.Term)
	})
}

// SetSort godoc
// @Summary      Sort tab
// @Description  Sort a list tab by field; sorting by the same field again flips the direction
// @Tags         portal
// @Accept       json
// @Produce      json
// @Param        tab path string true "Tab name"
// @Param        request body SortRequest true "Sort field"
// @Success      200 {object} dto.Response{data=appportal.TabView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/sort [post]
func (h *PortalHandler) SetSort(c *gin.Context) {
	var req SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.mutate(c, func(ws *appportal.Workspace, tab portal.Tab) (appportal.TabView, error) {
		return ws.Sort(tab, req.Field)
	})
}

// SetPageSize godoc
// @Summary      Set page size
// @Description  Change the page size of a list tab and return page 1
// @Tags         portal
// @Accept       json
// @Produce      json
// @Param        tab path string true "Tab name"
// @Param        request body PageSizeRequest true "Page size"
// @Success      200 {object} dto.Response{data=appportal.TabView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/page-size [put]
func (h *PortalHandler) SetPageSize(c *gin.Context) {
	var req PageSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.mutate(c, func(ws *appportal.Workspace, tab portal.Tab) (appportal.TabView, error) {
		return ws.SetPageSize(tab, req.Size)
	})
}

// GoToPage godoc
// @Summary      Go to page
// @Description  Jump a list tab to a page, clamped into range
// @Tags         portal
// @Accept       json
// @Produce      json
// @Param        tab path string true "Tab name"
// @Param        request body PageRequest true "Page number"
// @Success      200 {object} dto.Response{data=appportal.TabView}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/page [put]
func (h *PortalHandler) GoToPage(c *gin.Context) {
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.mutate(c, func(ws *appportal.Workspace, tab portal.Tab) (appportal.TabView, error) {
		return ws.GoToPage(tab, req.Page)
	})
}

// NextPage godoc
// @Summary      Next page
// @Tags         portal
// @Produce      json
// @Param        tab path string true "Tab name"
// @Success      200 {object} dto.Response{data=appportal.TabView}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/next [post]
func (h *PortalHandler) NextPage(c *gin.Context) {
	h.mutate(c, (*appportal.Workspace).NextPage)
}

// PreviousPage godoc
// @Summary      Previous page
// @Tags         portal
// @Produce      json
// @Param        tab path string true "Tab name"
// @Success      200 {object} dto.Response{data=appportal.TabView}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/prev [post]
func (h *PortalHandler) PreviousPage(c *gin.Context) {
	h.mutate(c, (*appportal.Workspace).PreviousPage)
}

// SetFilter godoc
// @Summary      Filter tab
// @Description  Set the payment category or memo type filter of a list tab
// @Tags         portal
// @Accept       json
// @Produce      json
// @Param        tab path string true "Tab name"
// @Param        request body FilterRequest true "Filter"
// @Success      200 {object} dto.Response{data=appportal.TabView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/filter [put]
func (h *PortalHandler) SetFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.mutate(c, func(ws *appportal.Workspace, tab portal.Tab) (appportal.TabView, error) {
		return ws.SetFilter(tab, req.Name, req.Value)
	})
}

func (h *PortalHandler) mutate(c *gin.Context, fn func(*appportal.Workspace, portal.Tab) (appportal.TabView, error)) {
	_, ws, ok := h.workspace(c)
	if !ok {
		return
	}
	view, err := fn(ws, tabParam(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// ExportTab godoc
// @Summary      Export tab
// @Description  Download the filtered and sorted rows of a list tab
// @Tags         portal
// @Produce      application/octet-stream
// @Param        tab path string true "Tab name"
// @Param        format query string false "csv or xlsx" default(csv)
// @Success      200 {file} file
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/tabs/{tab}/export [get]
func (h *PortalHandler) ExportTab(c *gin.Context) {
	format, valid := portal.ParseSheetFormat(c.Query("format"))
	if !valid {
		h.HandleError(c, shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("unsupported export format %q", c.Query("format"))))
		return
	}
	_, ws, ok := h.workspace(c)
	if !ok {
		return
	}

	doc, err := ws.Export(c.Request.Context(), tabParam(c), format)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sendDocument(c, doc)
}

// DownloadInvoice godoc
// @Summary      Download invoice
// @Description  Render an invoice of the loaded invoices tab as PDF
// @Tags         portal
// @Produce      application/pdf
// @Param        id path string true "Invoice ID"
// @Success      200 {file} file
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /portal/invoices/{id}/pdf [get]
func (h *PortalHandler) DownloadInvoice(c *gin.Context) {
	_, ws, ok := h.workspace(c)
	if !ok {
		return
	}

	doc, err := ws.DownloadInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sendDocument(c, doc)
}

// GetAnalytics godoc
// @Summary      Sales analytics
// @Description  Analytics tab data with chart scaling helpers
// @Tags         portal
// @Produce      json
// @Success      200 {object} dto.Response{data=appportal.AnalyticsView}
// @Security     BearerAuth
// @Router       /portal/analytics [get]
func (h *PortalHandler) GetAnalytics(c *gin.Context) {
	_, ws, ok := h.workspace(c)
	if !ok {
		return
	}
	h.Success(c, ws.Analytics())
}

// Reload godoc
// @Summary      Reload workspace
// @Description  Drop all tab data and inputs and load the default tabs again
// @Tags         portal
// @Produce      json
// @Success      202 {object} dto.Response{data=[]appportal.TabStatus}
// @Security     BearerAuth
// @Router       /portal/reload [post]
func (h *PortalHandler) Reload(c *gin.Context) {
	_, ws, ok := h.workspace(c)
	if !ok {
		return
	}
	ws.Reload()
	h.Accepted(c, tabStatuses(ws))
}

func sendDocument(c *gin.Context, doc portal.Document) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
