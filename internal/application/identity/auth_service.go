// Package identity implements customer authentication and session lifecycle.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/auth"
	"github.com/erp/portal/internal/infrastructure/telemetry"
)

// Login results recorded in metrics
const (
	loginResultSuccess = "success"
	loginResultInvalid = "invalid"
	loginResultMissing = "missing"
	loginResultError   = "error"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	LoginDelay time.Duration // simulated latency of a credential check
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{LoginDelay: time.Second}
}

// AuthService checks customer credentials, keeps live sessions and persists
// the logged-in user through a SessionStore.
type AuthService struct {
	credentials map[string]identity.Credential
	store       identity.SessionStore
	jwtService  *auth.JWTService
	metrics     *telemetry.Metrics
	config      AuthServiceConfig
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*identity.Session
}

var _ identity.AuthProvider = (*AuthService)(nil)

// NewAuthService creates a new authentication service. metrics may be nil.
func NewAuthService(
	credentials []identity.Credential,
	store identity.SessionStore,
	jwtService *auth.JWTService,
	metrics *telemetry.Metrics,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	byID := make(map[string]identity.Credential, len(credentials))
	for _, c := range credentials {
		byID[c.CustomerID] = c
	}
	return &AuthService{
		credentials: byID,
		store:       store,
		jwtService:  jwtService,
		metrics:     metrics,
		config:      config,
		logger:      logger,
		sessions:    make(map[string]*identity.Session),
	}
}

// Login checks the credentials and attaches the customer to session. A
// wrong customer id or password yields ok=false with a nil error.
func (s *AuthService) Login(ctx context.Context, session *identity.Session, customerID, password string) (bool, error) {
	if customerID == "" || password == "" {
		s.metrics.ObserveLogin(loginResultMissing)
		return false, identity.ErrMissingCredentials
	}

	if err := sleep(ctx, s.config.LoginDelay); err != nil {
		s.metrics.ObserveLogin(loginResultError)
		return false, shared.WrapDomainError(identity.ErrLoginFailed.Code, identity.MsgLoginFailed, err)
	}

	cred, ok := s.credentials[customerID]
	if !ok || !cred.Verify(password) {
		s.logger.Warn("Invalid login attempt", zap.String("customer_id", customerID))
		s.metrics.ObserveLogin(loginResultInvalid)
		return false, nil
	}

	if err := s.store.Save(ctx, session.ID(), cred.User); err != nil {
		s.logger.Error("Failed to persist session", zap.String("session_id", session.ID()), zap.Error(err))
		s.metrics.ObserveLogin(loginResultError)
		return false, shared.WrapDomainError(identity.ErrLoginFailed.Code, identity.MsgLoginFailed, err)
	}

	session.SetUser(cred.User)
	s.track(session)
	s.metrics.ObserveLogin(loginResultSuccess)
	s.logger.Info("Customer logged in",
		zap.String("customer_id", customerID),
		zap.String("session_id", session.ID()),
	)
	return true, nil
}

// Logout removes the persisted user and clears session. The in-memory
// session is cleared even when the store fails.
func (s *AuthService) Logout(ctx context.Context, session *identity.Session) error {
	s.mu.Lock()
	delete(s.sessions, session.ID())
	s.mu.Unlock()

	err := s.store.Delete(ctx, session.ID())
	session.Clear()
	if err != nil {
		s.logger.Error("Failed to delete persisted session", zap.String("session_id", session.ID()), zap.Error(err))
		return err
	}
	s.logger.Info("Customer logged out", zap.String("session_id", session.ID()))
	return nil
}

// CurrentUser returns the user attached to session.
func (s *AuthService) CurrentUser(_ context.Context, session *identity.Session) (identity.User, bool) {
	return session.Snapshot()
}

// Authenticate opens a new session, logs the customer in and issues an
// access token bound to the session id.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("customer_id", input.CustomerID), zap.String("ip", input.IP))

	session := identity.NewSession(uuid.NewString())
	ok, err := s.Login(ctx, session, input.CustomerID, input.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(session.ID(), input.CustomerID)
	if err != nil {
		_ = s.Logout(ctx, session)
		return nil, shared.WrapDomainError(identity.ErrLoginFailed.Code, identity.MsgLoginFailed, err)
	}

	user, _ := session.Snapshot()
	return &LoginResult{
		SessionID:   session.ID(),
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        ToUserInfo(user),
	}, nil
}

// Resume returns the live session with sessionID, restoring it from the
// store when this process has not seen it yet.
func (s *AuthService) Resume(ctx context.Context, sessionID string) (*identity.Session, error) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok && session.LoggedIn() {
		return session, nil
	}

	user, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, identity.ErrSessionNotFound) {
			return nil, identity.ErrSessionNotFound
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have restored it meanwhile
	if existing, ok := s.sessions[sessionID]; ok && existing.LoggedIn() {
		return existing, nil
	}
	session = identity.NewSession(sessionID)
	session.SetUser(user)
	s.sessions[sessionID] = session
	s.logger.Debug("Session restored", zap.String("session_id", sessionID))
	return session, nil
}

// EndSession logs out the session with sessionID.
func (s *AuthService) EndSession(ctx context.Context, sessionID string) error {
	session, err := s.Resume(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.Logout(ctx, session)
}

// ActiveSessions returns the number of sessions known to this process.
func (s *AuthService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *AuthService) track(session *identity.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
