package identity

import (
	"context"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/auth"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// Mocks
// =============================================================================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =============================================================================
// Fixtures
// =============================================================================

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-characters",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "backoffice-test",
		MaxRefreshCount:        10,
	})
}

func testUser(t *testing.T, role identity.Role) *identity.User {
	t.Helper()
	user, err := identity.NewUser("ayse.demir", "ayse@example.com", "correct-horse-1", role)
	require.NoError(t, err)
	return user
}

func newAuthService(users *MockUserRepository) *AuthService {
	return NewAuthService(users, testJWTService(), DefaultAuthServiceConfig(), zap.NewNop())
}

// =============================================================================
// Login
// =============================================================================

func TestAuthService_Login(t *testing.T) {
	t.Run("returns token pair on valid credentials", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleAdmin)
		users.On("FindByUsername", mock.Anything, "ayse.demir").Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		resp, err := newAuthService(users).Login(context.Background(), LoginRequest{
			Username: "ayse.demir",
			Password: "correct-horse-1",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, "ayse.demir", resp.User.Username)
		assert.Equal(t, "admin", resp.User.Role)
		assert.NotNil(t, user.LastLoginAt, "successful login is recorded")
		users.AssertExpectations(t)
	})

	t.Run("access token carries the user's role", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleUser)
		users.On("FindByUsername", mock.Anything, "ayse.demir").Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		svc := newAuthService(users)
		resp, err := svc.Login(context.Background(), LoginRequest{
			Username: "ayse.demir",
			Password: "correct-horse-1",
		})
		require.NoError(t, err)

		claims, err := testJWTService().ValidateAccessToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user", claims.Role)
		assert.Equal(t, user.ID.String(), claims.UserID)
	})

	t.Run("rejects unknown username without revealing it", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByUsername", mock.Anything, "ghost").Return(nil, nil)

		_, err := newAuthService(users).Login(context.Background(), LoginRequest{
			Username: "ghost",
			Password: "whatever-1",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	})

	t.Run("rejects wrong password and counts the failure", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleUser)
		users.On("FindByUsername", mock.Anything, "ayse.demir").Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		_, err := newAuthService(users).Login(context.Background(), LoginRequest{
			Username: "ayse.demir",
			Password: "wrong-password-1",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
		assert.Equal(t, 1, user.FailedAttempts)
	})

	t.Run("locks the account after repeated failures", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleUser)
		users.On("FindByUsername", mock.Anything, "ayse.demir").Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		svc := newAuthService(users)
		var lastErr error
		for i := 0; i < DefaultAuthServiceConfig().MaxLoginAttempts; i++ {
			_, lastErr = svc.Login(context.Background(), LoginRequest{
				Username: "ayse.demir",
				Password: "wrong-password-1",
			})
		}

		var domainErr *shared.DomainError
		require.ErrorAs(t, lastErr, &domainErr)
		assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
		assert.True(t, user.IsLocked())

		// Even the correct password is refused while locked
		_, err := svc.Login(context.Background(), LoginRequest{
			Username: "ayse.demir",
			Password: "correct-horse-1",
		})
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
	})

	t.Run("rejects deactivated account", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleUser)
		require.NoError(t, user.Deactivate())
		users.On("FindByUsername", mock.Anything, "ayse.demir").Return(user, nil)

		_, err := newAuthService(users).Login(context.Background(), LoginRequest{
			Username: "ayse.demir",
			Password: "correct-horse-1",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", domainErr.Code)
	})
}

// =============================================================================
// Refresh
// =============================================================================

func TestAuthService_Refresh(t *testing.T) {
	t.Run("issues a new pair carrying the current role", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleUser)
		users.On("FindByUsername", mock.Anything, "ayse.demir").Return(user, nil)
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		svc := newAuthService(users)
		login, err := svc.Login(context.Background(), LoginRequest{
			Username: "ayse.demir",
			Password: "correct-horse-1",
		})
		require.NoError(t, err)

		// Role change between login and refresh shows up in the new token
		require.NoError(t, user.SetRole(identity.RoleAdmin))

		refreshed, err := svc.Refresh(context.Background(), RefreshRequest{RefreshToken: login.RefreshToken})
		require.NoError(t, err)

		claims, err := testJWTService().ValidateAccessToken(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("rejects a garbage token", func(t *testing.T) {
		users := new(MockUserRepository)

		_, err := newAuthService(users).Refresh(context.Background(), RefreshRequest{RefreshToken: "not-a-jwt"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
	})

	t.Run("rejects refresh for a deactivated user", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleUser)
		users.On("FindByUsername", mock.Anything, "ayse.demir").Return(user, nil)
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		svc := newAuthService(users)
		login, err := svc.Login(context.Background(), LoginRequest{
			Username: "ayse.demir",
			Password: "correct-horse-1",
		})
		require.NoError(t, err)

		require.NoError(t, user.Deactivate())

		_, err = svc.Refresh(context.Background(), RefreshRequest{RefreshToken: login.RefreshToken})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNT_INACTIVE", domainErr.Code)
	})
}

// =============================================================================
// ChangePassword
// =============================================================================

func TestAuthService_ChangePassword(t *testing.T) {
	t.Run("changes password with the correct current one", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleUser)
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		actor := identity.Actor{UserID: user.ID, Username: user.Username, Role: user.Role}
		err := newAuthService(users).ChangePassword(context.Background(), actor, ChangePasswordRequest{
			CurrentPassword: "correct-horse-1",
			NewPassword:     "new-password-22",
		})

		require.NoError(t, err)
		assert.True(t, user.VerifyPassword("new-password-22"))
		assert.False(t, user.VerifyPassword("correct-horse-1"))
	})

	t.Run("rejects a wrong current password", func(t *testing.T) {
		users := new(MockUserRepository)
		user := testUser(t, identity.RoleUser)
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		actor := identity.Actor{UserID: user.ID, Username: user.Username, Role: user.Role}
		err := newAuthService(users).ChangePassword(context.Background(), actor, ChangePasswordRequest{
			CurrentPassword: "wrong-password-1",
			NewPassword:     "new-password-22",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PASSWORD", domainErr.Code)
		assert.True(t, user.VerifyPassword("correct-horse-1"), "password is unchanged")
	})
}
