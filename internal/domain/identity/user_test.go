package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("Ayse.Kaya", "ayse@example.com", "secret123", RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "ayse.kaya", u.Username)
	assert.Equal(t, "ayse@example.com", u.Email)
	assert.Equal(t, UserStatusActive, u.Status)
	assert.True(t, u.VerifyPassword("secret123"))
	assert.False(t, u.VerifyPassword("wrong"))
}

func TestNewUser_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     Role
	}{
		{"short username", "ab", "", "secret123", RoleUser},
		{"bad chars in username", "a b!", "", "secret123", RoleUser},
		{"short password", "valid", "", "a1", RoleUser},
		{"password without number", "valid", "", "abcdefgh", RoleUser},
		{"password without letter", "valid", "", "12345678", RoleUser},
		{"bad email", "valid", "not-an-email", "secret123", RoleUser},
		{"bad role", "valid", "", "secret123", Role("superuser")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.username, tt.email, tt.password, tt.role)
			assert.Error(t, err)
		})
	}
}

func TestUser_Capabilities(t *testing.T) {
	admin, err := NewUser("admin", "", "secret123", RoleAdmin)
	require.NoError(t, err)
	user, err := NewUser("clerk", "", "secret123", RoleUser)
	require.NoError(t, err)

	assert.NoError(t, admin.Authorize(CapApproveOrders))
	assert.NoError(t, admin.Authorize(CapManageAccounts))
	assert.NoError(t, user.Authorize(CapCreateRecords))
	assert.NoError(t, user.Authorize(CapViewReports))

	assert.Error(t, user.Authorize(CapApproveOrders))
	assert.Error(t, user.Authorize(CapCompleteOrders))
	assert.Error(t, user.Authorize(CapViewAllRecords))

	require.NoError(t, user.Deactivate())
	assert.Error(t, user.Authorize(CapCreateRecords), "deactivated users hold no capabilities")
}

func TestUser_CanAccess(t *testing.T) {
	admin, err := NewUser("admin", "", "secret123", RoleAdmin)
	require.NoError(t, err)
	user, err := NewUser("clerk", "", "secret123", RoleUser)
	require.NoError(t, err)

	other := uuid.New()
	assert.True(t, admin.CanAccess(other))
	assert.False(t, user.CanAccess(other))
	assert.True(t, user.CanAccess(user.ID))
}

func TestUser_Lockout(t *testing.T) {
	u, err := NewUser("clerk", "", "secret123", RoleUser)
	require.NoError(t, err)

	assert.False(t, u.RecordLoginFailure(3, time.Minute))
	assert.False(t, u.RecordLoginFailure(3, time.Minute))
	assert.True(t, u.RecordLoginFailure(3, time.Minute), "third failure locks the account")
	assert.True(t, u.IsLocked())
	assert.False(t, u.CanLogin())

	u.RecordLoginSuccess()
	assert.False(t, u.IsLocked())
	assert.Equal(t, 0, u.FailedAttempts)
	assert.True(t, u.CanLogin())
}

func TestUser_PasswordChange(t *testing.T) {
	u, err := NewUser("clerk", "", "secret123", RoleUser)
	require.NoError(t, err)

	assert.Error(t, u.ChangePassword("wrong", "newpass99"))
	require.NoError(t, u.ChangePassword("secret123", "newpass99"))
	assert.True(t, u.VerifyPassword("newpass99"))
	assert.False(t, u.VerifyPassword("secret123"))
}
