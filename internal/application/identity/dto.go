package identity

import (
	"time"

	"github.com/erp/portal/internal/domain/identity"
)

// LoginInput contains the input for customer login
type LoginInput struct {
	CustomerID string
	Password   string
	IP         string // client IP, logged only
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	SessionID   string
	AccessToken string
	ExpiresAt   time.Time
	TokenType   string
	User        UserInfo
}

// UserInfo is the customer profile returned to clients
type UserInfo struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Company    string `json:"company"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Initials   string `json:"initials"`
}

// ToUserInfo converts a domain user into its profile view
func ToUserInfo(u identity.User) UserInfo {
	return UserInfo{
		CustomerID: u.CustomerID,
		Name:       u.Name,
		Email:      u.Email,
		Company:    u.Company,
		Phone:      u.Phone,
		Address:    u.Address,
		Initials:   u.Initials(),
	}
}
