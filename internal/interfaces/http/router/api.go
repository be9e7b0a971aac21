package router

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/portal/internal/interfaces/http/handler"
)

// Handlers bundles the handlers served under the API prefix
type Handlers struct {
	Auth   *handler.AuthHandler
	Portal *handler.PortalHandler
	System *handler.SystemHandler
}

// PublicPaths are the API paths reachable without a token, relative to the
// API prefix.
var PublicPaths = []string{
	"/auth/login",
	"/system/ping",
	"/system/health",
}

// AuthRoutes builds the auth group. loginGuard, when not nil, runs before
// the login handler.
func AuthRoutes(h *handler.AuthHandler, loginGuard gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	if loginGuard != nil {
		g.POST("/login", loginGuard, h.Login)
	} else {
		g.POST("/login", h.Login)
	}
	g.POST("/logout", h.Logout)
	g.GET("/me", h.GetCurrentUser)
	g.GET("/session/ws", h.SessionEvents)
	return g
}

// PortalRoutes builds the workspace group
func PortalRoutes(h *handler.PortalHandler) *DomainGroup {
	g := NewDomainGroup("portal", "/portal")
	g.GET("/profile", h.GetProfile)
	g.POST("/reload", h.Reload)
	g.GET("/analytics", h.GetAnalytics)
	g.GET("/invoices/:id/pdf", h.DownloadInvoice)

	tabs := g.Group("tabs", "/tabs")
	tabs.GET("", h.ListTabs)
	tabs.GET("/:tab", h.GetTab)
	tabs.POST("/:tab/activate", h.ActivateTab)
	tabs.PUT("/:tab/search", h.SetSearch)
	tabs.POST("/:tab/sort", h.SetSort)
	tabs.PUT("/:tab/page-size", h.SetPageSize)
	tabs.PUT("/:tab/page", h.GoToPage)
	tabs.POST("/:tab/next", h.NextPage)
	tabs.POST("/:tab/prev", h.PreviousPage)
	tabs.PUT("/:tab/filter", h.SetFilter)
	tabs.GET("/:tab/export", h.ExportTab)
	return g
}

// SystemRoutes builds the system group
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/ping", h.Ping)
	g.GET("/health", h.Health)
	return g
}

// RegisterAPI registers every group of the portal API
func RegisterAPI(r *Router, h Handlers, loginGuard gin.HandlerFunc) *Router {
	return r.Register(AuthRoutes(h.Auth, loginGuard)).
		Register(PortalRoutes(h.Portal)).
		Register(SystemRoutes(h.System))
}
