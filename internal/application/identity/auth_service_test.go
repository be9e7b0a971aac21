package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/auth"
)

// MockSessionStore is a mock implementation of identity.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Save(ctx context.Context, sessionID string, user identity.User) error {
	args := m.Called(ctx, sessionID, user)
	return args.Error(0)
}

func (m *MockSessionStore) Load(ctx context.Context, sessionID string) (identity.User, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(identity.User), args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

var johnSmith = identity.User{
	CustomerID: "CUST001",
	Name:       "John Smith",
	Email:      "john.smith@example.com",
	Company:    "Acme Corporation",
	Phone:      "+1 (555) 123-4567",
	Address:    "123 Business Ave, Suite 100, New York, NY 10001",
}

func newTestAuthService(t *testing.T, store identity.SessionStore) *AuthService {
	t.Helper()
	cred, err := identity.NewCredential(johnSmith, "password", bcrypt.MinCost)
	require.NoError(t, err)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:     "test-secret-key-that-is-long-enough",
		Expiration: time.Hour,
		Issuer:     "portal-test",
	})
	return NewAuthService(
		[]identity.Credential{cred},
		store,
		jwtService,
		nil,
		AuthServiceConfig{LoginDelay: 0},
		zap.NewNop(),
	)
}

func TestAuthService_Login(t *testing.T) {
	t.Run("valid credentials attach the user and persist it", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Save", mock.Anything, "sess-1", johnSmith).Return(nil)
		svc := newTestAuthService(t, store)
		session := identity.NewSession("sess-1")

		var events []identity.Event
		unsubscribe := session.Subscribe(func(e identity.Event) { events = append(events, e) })
		defer unsubscribe()

		ok, err := svc.Login(context.Background(), session, "CUST001", "password")
		require.NoError(t, err)
		assert.True(t, ok)

		user, loggedIn := svc.CurrentUser(context.Background(), session)
		assert.True(t, loggedIn)
		assert.Equal(t, "JS", user.Initials())
		require.Len(t, events, 1)
		assert.Equal(t, identity.EventLoggedIn, events[0].Type)
		assert.Equal(t, 1, svc.ActiveSessions())
		store.AssertExpectations(t)
	})

	t.Run("wrong password is not an error", func(t *testing.T) {
		store := new(MockSessionStore)
		svc := newTestAuthService(t, store)
		session := identity.NewSession("sess-2")

		ok, err := svc.Login(context.Background(), session, "CUST001", "wrong")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, session.LoggedIn())
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown customer is not an error", func(t *testing.T) {
		svc := newTestAuthService(t, new(MockSessionStore))

		ok, err := svc.Login(context.Background(), identity.NewSession("s"), "CUST999", "password")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := newTestAuthService(t, new(MockSessionStore))

		for _, tc := range []struct{ id, pw string }{{"", "password"}, {"CUST001", ""}, {"", ""}} {
			ok, err := svc.Login(context.Background(), identity.NewSession("s"), tc.id, tc.pw)
			assert.False(t, ok)
			assert.ErrorIs(t, err, identity.ErrMissingCredentials)
			assert.Equal(t, identity.MsgMissingCredentials, err.(*shared.DomainError).Message)
		}
	})

	t.Run("store failure surfaces as login failed", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Save", mock.Anything, "s", johnSmith).Return(errors.New("redis down"))
		svc := newTestAuthService(t, store)
		session := identity.NewSession("s")

		ok, err := svc.Login(context.Background(), session, "CUST001", "password")
		assert.False(t, ok)
		assert.ErrorIs(t, err, identity.ErrLoginFailed)
		assert.False(t, session.LoggedIn())
	})

	t.Run("delay honours cancellation", func(t *testing.T) {
		svc := newTestAuthService(t, new(MockSessionStore))
		svc.config.LoginDelay = time.Hour

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		ok, err := svc.Login(ctx, identity.NewSession("s"), "CUST001", "password")
		assert.False(t, ok)
		assert.ErrorIs(t, err, identity.ErrLoginFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("clears session and store", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Save", mock.Anything, "s", johnSmith).Return(nil)
		store.On("Delete", mock.Anything, "s").Return(nil)
		svc := newTestAuthService(t, store)
		session := identity.NewSession("s")

		_, err := svc.Login(context.Background(), session, "CUST001", "password")
		require.NoError(t, err)

		var got []identity.EventType
		session.Subscribe(func(e identity.Event) { got = append(got, e.Type) })

		require.NoError(t, svc.Logout(context.Background(), session))
		assert.False(t, session.LoggedIn())
		assert.Equal(t, []identity.EventType{identity.EventLoggedOut}, got)
		assert.Equal(t, 0, svc.ActiveSessions())
		store.AssertExpectations(t)
	})

	t.Run("store failure still clears session", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Delete", mock.Anything, "s").Return(errors.New("down"))
		svc := newTestAuthService(t, store)
		session := identity.NewSession("s")
		session.SetUser(johnSmith)

		assert.Error(t, svc.Logout(context.Background(), session))
		assert.False(t, session.LoggedIn())
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("issues a token bound to the session", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Save", mock.Anything, mock.AnythingOfType("string"), johnSmith).Return(nil)
		svc := newTestAuthService(t, store)

		result, err := svc.Authenticate(context.Background(), LoginInput{CustomerID: "CUST001", Password: "password"})
		require.NoError(t, err)

		assert.NotEmpty(t, result.SessionID)
		assert.Equal(t, "Bearer", result.TokenType)
		assert.Equal(t, "JS", result.User.Initials)

		claims, err := svc.jwtService.ValidateToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, result.SessionID, claims.SessionID)
		assert.Equal(t, "CUST001", claims.CustomerID)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := newTestAuthService(t, new(MockSessionStore))

		result, err := svc.Authenticate(context.Background(), LoginInput{CustomerID: "CUST001", Password: "nope"})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})
}

func TestAuthService_Resume(t *testing.T) {
	t.Run("returns live session", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Save", mock.Anything, "s", johnSmith).Return(nil)
		svc := newTestAuthService(t, store)
		session := identity.NewSession("s")
		_, err := svc.Login(context.Background(), session, "CUST001", "password")
		require.NoError(t, err)

		got, err := svc.Resume(context.Background(), "s")
		require.NoError(t, err)
		assert.Same(t, session, got)
		store.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	})

	t.Run("restores from store", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Load", mock.Anything, "persisted").Return(johnSmith, nil).Once()
		svc := newTestAuthService(t, store)

		got, err := svc.Resume(context.Background(), "persisted")
		require.NoError(t, err)
		user, ok := got.Snapshot()
		assert.True(t, ok)
		assert.Equal(t, johnSmith, user)

		again, err := svc.Resume(context.Background(), "persisted")
		require.NoError(t, err)
		assert.Same(t, got, again)
		store.AssertExpectations(t)
	})

	t.Run("unknown session", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Load", mock.Anything, "gone").Return(identity.User{}, identity.ErrSessionNotFound)
		svc := newTestAuthService(t, store)

		_, err := svc.Resume(context.Background(), "gone")
		assert.ErrorIs(t, err, identity.ErrSessionNotFound)
	})

	t.Run("end session", func(t *testing.T) {
		store := new(MockSessionStore)
		store.On("Load", mock.Anything, "persisted").Return(johnSmith, nil)
		store.On("Delete", mock.Anything, "persisted").Return(nil)
		svc := newTestAuthService(t, store)

		require.NoError(t, svc.EndSession(context.Background(), "persisted"))
		assert.Equal(t, 0, svc.ActiveSessions())
	})
}
