package handler

import (
	"time"

	"github.com/erp/portal/internal/application/identity"
)

// LoginRequest represents the request body for customer login. Empty fields
// are reported by the auth service, not by binding.
type LoginRequest struct {
	CustomerID string `json:"customer_id" binding:"max=64"`
	Password   string `json:"password" binding:"max=128"`
}

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	SessionID string            `json:"session_id"`
	Token     TokenResponse     `json:"token"`
	User      identity.UserInfo `json:"user"`
}

// LogoutResponse represents the response body for logout
type LogoutResponse struct {
	Message string `json:"message"`
}

// CurrentUserResponse represents the current session and its user
type CurrentUserResponse struct {
	SessionID string            `json:"session_id"`
	User      identity.UserInfo `json:"user"`
}
