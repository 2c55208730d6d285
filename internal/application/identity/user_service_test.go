package identity

import (
	"context"
	"testing"

	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func adminActor() identity.Actor {
	return identity.Actor{UserID: uuid.New(), Username: "admin", Role: identity.RoleAdmin}
}

func regularActor() identity.Actor {
	return identity.Actor{UserID: uuid.New(), Username: "mehmet", Role: identity.RoleUser}
}

func TestUserService_Create(t *testing.T) {
	t.Run("creates a user with normalized username", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByUsername", mock.Anything, "yeni.kullanici").Return(nil, nil)
		users.On("FindByEmail", mock.Anything, "yeni@example.com").Return(nil, nil)
		users.On("Save", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

		resp, err := NewUserService(users, zap.NewNop()).Create(context.Background(), adminActor(), CreateUserRequest{
			Username: "Yeni.Kullanici",
			Email:    "yeni@example.com",
			Password: "password-123",
			FullName: "Yeni Kullanici",
			Role:     "user",
		})

		require.NoError(t, err)
		assert.Equal(t, "yeni.kullanici", resp.Username)
		assert.Equal(t, "user", resp.Role)
		assert.Equal(t, "Yeni Kullanici", resp.FullName)
		users.AssertExpectations(t)
	})

	t.Run("rejects non-admin callers", func(t *testing.T) {
		users := new(MockUserRepository)

		_, err := NewUserService(users, zap.NewNop()).Create(context.Background(), regularActor(), CreateUserRequest{
			Username: "someone",
			Password: "password-123",
		})

		assert.ErrorIs(t, err, shared.ErrForbidden)
		users.AssertNotCalled(t, "Save")
	})

	t.Run("rejects a taken username", func(t *testing.T) {
		users := new(MockUserRepository)
		existing, err := identity.NewUser("taken", "", "password-123", identity.RoleUser)
		require.NoError(t, err)
		users.On("FindByUsername", mock.Anything, "taken").Return(existing, nil)

		_, err = NewUserService(users, zap.NewNop()).Create(context.Background(), adminActor(), CreateUserRequest{
			Username: "taken",
			Password: "password-123",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
		users.AssertNotCalled(t, "Save")
	})
}

func TestUserService_GetByID(t *testing.T) {
	t.Run("non-admin may read own profile only", func(t *testing.T) {
		users := new(MockUserRepository)
		user, err := identity.NewUser("mehmet", "", "password-123", identity.RoleUser)
		require.NoError(t, err)
		actor := identity.Actor{UserID: user.ID, Username: user.Username, Role: user.Role}
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		svc := NewUserService(users, zap.NewNop())

		resp, err := svc.GetByID(context.Background(), actor, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "mehmet", resp.Username)

		_, err = svc.GetByID(context.Background(), actor, uuid.New())
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestUserService_Update(t *testing.T) {
	t.Run("admin cannot change own role", func(t *testing.T) {
		users := new(MockUserRepository)
		admin, err := identity.NewUser("admin", "", "password-123", identity.RoleAdmin)
		require.NoError(t, err)
		actor := identity.Actor{UserID: admin.ID, Username: admin.Username, Role: admin.Role}
		users.On("FindByID", mock.Anything, admin.ID).Return(admin, nil)

		role := "user"
		_, err = NewUserService(users, zap.NewNop()).Update(context.Background(), actor, admin.ID, UpdateUserRequest{Role: &role})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "SELF_ROLE_CHANGE", domainErr.Code)
	})

	t.Run("promotes another user to admin", func(t *testing.T) {
		users := new(MockUserRepository)
		user, err := identity.NewUser("mehmet", "", "password-123", identity.RoleUser)
		require.NoError(t, err)
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		role := "admin"
		resp, err := NewUserService(users, zap.NewNop()).Update(context.Background(), adminActor(), user.ID, UpdateUserRequest{Role: &role})

		require.NoError(t, err)
		assert.Equal(t, "admin", resp.Role)
	})
}

func TestUserService_Deactivate(t *testing.T) {
	t.Run("admin cannot deactivate self", func(t *testing.T) {
		users := new(MockUserRepository)
		actor := adminActor()

		_, err := NewUserService(users, zap.NewNop()).Deactivate(context.Background(), actor, actor.UserID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "SELF_DEACTIVATION", domainErr.Code)
		users.AssertNotCalled(t, "Save")
	})

	t.Run("deactivates and reactivates a user", func(t *testing.T) {
		users := new(MockUserRepository)
		user, err := identity.NewUser("mehmet", "", "password-123", identity.RoleUser)
		require.NoError(t, err)
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		users.On("Save", mock.Anything, user).Return(nil)

		svc := NewUserService(users, zap.NewNop())

		resp, err := svc.Deactivate(context.Background(), adminActor(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "deactivated", resp.Status)

		resp, err = svc.Activate(context.Background(), adminActor(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "active", resp.Status)
	})
}

func TestUserService_ResetPassword(t *testing.T) {
	users := new(MockUserRepository)
	user, err := identity.NewUser("mehmet", "", "old-password-1", identity.RoleUser)
	require.NoError(t, err)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	users.On("Save", mock.Anything, user).Return(nil)

	err = NewUserService(users, zap.NewNop()).ResetPassword(context.Background(), adminActor(), user.ID, ResetPasswordRequest{
		NewPassword: "fresh-password-9",
	})

	require.NoError(t, err)
	assert.True(t, user.VerifyPassword("fresh-password-9"))
}
