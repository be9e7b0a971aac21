package handler

import (
	appidentity "github.com/erp/portal/internal/application/identity"
	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/infrastructure/notify"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *appidentity.AuthService
	hub         *notify.Hub
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *appidentity.AuthService, hub *notify.Hub) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		hub:         hub,
	}
}

// currentSession resolves the session named by the validated token.
func currentSession(c *gin.Context, authService *appidentity.AuthService) (*identity.Session, error) {
	sessionID := middleware.GetJWTSessionID(c)
	if sessionID == "" {
		return nil, identity.ErrNotLoggedIn
	}
	return authService.Resume(c.Request.Context(), sessionID)
}

// Login godoc
// @Summary      Customer login
// @Description  Authenticate with customer id and password and open a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.authService.Authenticate(c.Request.Context(), appidentity.LoginInput{
		CustomerID: req.CustomerID,
		Password:   req.Password,
		IP:         c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		SessionID: result.SessionID,
		Token: TokenResponse{
			AccessToken: result.AccessToken,
			ExpiresAt:   result.ExpiresAt,
			TokenType:   result.TokenType,
		},
		User: result.User,
	})
}

// Logout godoc
// @Summary      Logout
// @Description  End the current session and drop its workspace
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=LogoutResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := middleware.GetJWTSessionID(c)
	if sessionID == "" {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.authService.EndSession(c.Request.Context(), sessionID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LogoutResponse{Message: "Logged out successfully"})
}

// GetCurrentUser godoc
// @Summary      Get current user
// @Description  Get the customer logged in on the current session
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=CurrentUserResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	session, err := currentSession(c, h.authService)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	user, ok := h.authService.CurrentUser(c.Request.Context(), session)
	if !ok {
		h.HandleError(c, identity.ErrNotLoggedIn)
		return
	}

	h.Success(c, CurrentUserResponse{
		SessionID: session.ID(),
		User:      appidentity.ToUserInfo(user),
	})
}

// SessionEvents godoc
// @Summary      Session event stream
// @Description  Upgrade to a websocket that receives tab load events of the session
// @Tags         auth
// @Param        access_token query string false "Token for clients that cannot set headers"
// @Success      101
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/session/ws [get]
func (h *AuthHandler) SessionEvents(c *gin.Context) {
	session, err := currentSession(c, h.authService)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.hub.Serve(c.Writer, c.Request, session.ID())
}
