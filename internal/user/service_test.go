// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiranx/WorldCountries/internal/auth"
	"github.com/Hiranx/WorldCountries/internal/core"
)

func newTestService(t *testing.T) (*Service, Repository) {
	t.Helper()
	repo, _ := newSQLiteRepo(t)
	return NewService(repo), repo
}

func strPtr(s string) *string { return &s }

func TestRegister(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Ada  ", " Ada@Example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.Empty(t, u.PasswordHash)
	assert.Empty(t, u.Favorites)

	stored, err := repo.GetWithSecretByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored.PasswordHash)
	valid, err := core.VerifyPassword("pw", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)

	_, err = svc.Register(ctx, "Other", "ADA@example.com", "pw2")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name, userName, email, password, message string
	}{
		{"blank name", "  ", "a@example.com", "pw", "name is required"},
		{"blank email", "A", " ", "pw", "email is required"},
		{"bad email", "A", "not-an-email", "pw", "email must be a valid email address"},
		{"blank password", "A", "a@example.com", "   ", "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.userName, tt.email, tt.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Equal(t, tt.message, err.(*core.AppError).Message)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ada", "ada@example.com", "old-pw")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Bob", "bob@example.com", "pw")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: strPtr("Ada L.")})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, 0, updated.TokenVersion)

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: strPtr("BOB@example.com")})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{
		NewPassword: strPtr("new-pw"),
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{
		CurrentPassword: strPtr("wrong"),
		NewPassword:     strPtr("new-pw"),
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	updated, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{
		CurrentPassword: strPtr("old-pw"),
		NewPassword:     strPtr("new-pw"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.TokenVersion)

	stored, err := repo.GetWithSecretByID(ctx, u.ID)
	require.NoError(t, err)
	valid, err := core.VerifyPassword("new-pw", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)

	same, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, u.ID, same.ID)

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: strPtr(" ")})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.UpdateProfile(ctx, uuid.NewString(), UpdateProfileInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.UpdateProfile(ctx, "", UpdateProfileInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestDeleteAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, u.ID, "wrong"), auth.ErrInvalidCredentials)
	assert.ErrorIs(t, svc.DeleteAccount(ctx, u.ID, ""), auth.ErrInvalidCredentials)

	require.NoError(t, svc.DeleteAccount(ctx, u.ID, "pw"))

	_, err = svc.GetMe(ctx, u.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, u.ID, "pw"), core.ErrNotFound)

	_, err = svc.Register(ctx, "Ada again", "ada@example.com", "pw")
	require.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ada", "ada@example.com", "old-pw")
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, " ADA@example.com", "fresh-pw"))

	info, err := svc.GetCredentials(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, info.ID)
	assert.Equal(t, 1, info.TokenVersion)

	valid, err := core.VerifyPassword("fresh-pw", info.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = core.VerifyPassword("old-pw", info.PasswordHash)
	require.NoError(t, err)
	assert.False(t, valid)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "nobody@example.com", "x"), core.ErrNotFound)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "ada@example.com", " "), core.ErrValidation)
}

func TestUpdateUserRoleAndCurrentAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	role, version, err := svc.CurrentAccount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)
	assert.Equal(t, 0, version)

	_, err = svc.UpdateUserRole(ctx, u.ID, "superuser")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	promoted, err := svc.UpdateUserRole(ctx, u.ID, RoleAdmin)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	role, version, err = svc.CurrentAccount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)
	assert.Equal(t, 1, version)

	_, _, err = svc.CurrentAccount(ctx, uuid.NewString())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpgradePasswordHashKeepsTokenVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	hash, err := core.HashPassword("pw")
	require.NoError(t, err)
	require.NoError(t, svc.UpgradePasswordHash(ctx, u.ID, hash))

	info, err := svc.GetCredentials(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, hash, info.PasswordHash)
	assert.Equal(t, 0, info.TokenVersion)
}
