// Package identity models the portal customer and their login session.
package identity

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/erp/portal/internal/domain/shared"
)

// SessionKey is the fixed key under which the logged-in user is persisted.
const SessionKey = "currentUser"

// User-facing login messages.
const (
	MsgMissingCredentials = "Please enter both Customer ID and Password"
	MsgInvalidCredentials = "Invalid credentials. Please try again."
	MsgLoginFailed        = "Login failed. Please try again."
)

// Identity errors
var (
	ErrMissingCredentials = shared.NewDomainError("VALIDATION_REQUIRED", MsgMissingCredentials)
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", MsgInvalidCredentials)
	ErrLoginFailed        = shared.NewDomainError("LOGIN_FAILED", MsgLoginFailed)
	ErrSessionNotFound    = shared.NewDomainError("SESSION_NOT_FOUND", "Session not found or expired")
	ErrNotLoggedIn        = shared.NewDomainError("UNAUTHORIZED", "Not logged in")
)

// User is the customer logged in to the portal.
type User struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Company    string `json:"company"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

// Initials returns the upper-cased first letter of each word of the name.
func (u User) Initials() string {
	var b strings.Builder
	for _, word := range strings.Fields(u.Name) {
		r := []rune(word)[0]
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Credential binds a customer ID and password hash to the user it unlocks.
type Credential struct {
	CustomerID   string
	PasswordHash []byte
	User         User
}

// NewCredential hashes password with bcrypt at the given cost.
func NewCredential(user User, password string, cost int) (Credential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return Credential{}, err
	}
	return Credential{CustomerID: user.CustomerID, PasswordHash: hash, User: user}, nil
}

// Verify reports whether password matches the stored hash.
func (c Credential) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) == nil
}

// SessionStore persists the logged-in user of a session so that it survives
// process restarts.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, user User) error
	Load(ctx context.Context, sessionID string) (User, error)
	Delete(ctx context.Context, sessionID string) error
}

// AuthProvider authenticates customers against a session. A rejected
// credential is reported as ok=false, not as an error.
type AuthProvider interface {
	Login(ctx context.Context, session *Session, customerID, password string) (bool, error)
	Logout(ctx context.Context, session *Session) error
	CurrentUser(ctx context.Context, session *Session) (User, bool)
}
