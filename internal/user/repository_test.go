// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiranx/WorldCountries/internal/config"
	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/migrations"
)

func newSQLiteRepo(t *testing.T) (Repository, *core.Database) {
	t.Helper()
	ctx := context.Background()

	db, err := core.NewSQLite(ctx, filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(ctx, db.DB.DB, config.DriverSQLite))

	return NewRepository(db.DB), db
}

func newTestUser(email string) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: "$argon2id$placeholder",
		Name:         "Test User",
		Role:         RoleUser,
	}
}

func TestSQLRepositoryCreateAndGet(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	u := newTestUser("ada@example.com")
	require.NoError(t, repo.Create(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, RoleUser, got.Role)
	assert.Empty(t, got.PasswordHash)
	assert.NotNil(t, got.Favorites)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

	got, err = repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	secret, err := repo.GetWithSecretByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$placeholder", secret.PasswordHash)

	_, err = repo.GetByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.GetWithSecretByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLRepositoryDuplicateEmail(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestUser("dup@example.com")))

	err := repo.Create(ctx, newTestUser("dup@example.com"))
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestSQLRepositoryConcurrentRegistration(t *testing.T) {
	repo, db := newSQLiteRepo(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		duplicates int
	)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, newTestUser("race@example.com"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, core.ErrDuplicateKey):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, duplicates)

	var count int
	require.NoError(t, db.DB.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM users WHERE email = ?`, "race@example.com"))
	assert.Equal(t, 1, count)
}

func TestSQLRepositoryUpdate(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	u := newTestUser("old@example.com")
	require.NoError(t, repo.Create(ctx, u))
	other := newTestUser("taken@example.com")
	require.NoError(t, repo.Create(ctx, other))

	name := "New Name"
	hash := "$argon2id$rotated"
	updated, err := repo.Update(ctx, u.ID, UpdateFields{
		Name:             &name,
		PasswordHash:     &hash,
		BumpTokenVersion: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "old@example.com", updated.Email)
	assert.Equal(t, 1, updated.TokenVersion)
	assert.Empty(t, updated.PasswordHash)
	assert.False(t, updated.UpdatedAt.Before(u.UpdatedAt))

	secret, err := repo.GetWithSecretByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, hash, secret.PasswordHash)

	taken := "taken@example.com"
	_, err = repo.Update(ctx, u.ID, UpdateFields{Email: &taken})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	_, err = repo.Update(ctx, uuid.New().String(), UpdateFields{Name: &name})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLRepositoryDelete(t *testing.T) {
	repo, db := newSQLiteRepo(t)
	ctx := context.Background()

	u := newTestUser("gone@example.com")
	require.NoError(t, repo.Create(ctx, u))
	_, err := repo.AddFavorite(ctx, u.ID, Favorite{Country: "Peru"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, u.ID))

	_, err = repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	var favorites int
	require.NoError(t, db.DB.GetContext(ctx, &favorites,
		`SELECT COUNT(*) FROM favorites WHERE user_id = ?`, u.ID))
	assert.Zero(t, favorites)

	assert.ErrorIs(t, repo.Delete(ctx, u.ID), core.ErrNotFound)

	// the email is free again
	require.NoError(t, repo.Create(ctx, newTestUser("gone@example.com")))
}

func TestSQLRepositoryFavoritesSetSemantics(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	u := newTestUser("fav@example.com")
	require.NoError(t, repo.Create(ctx, u))

	favorites, err := repo.ListFavorites(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, favorites)
	assert.NotNil(t, favorites)

	_, err = repo.AddFavorite(ctx, u.ID, Favorite{Country: "Japan", Flag: "https://flags.example/jp.svg"})
	require.NoError(t, err)
	_, err = repo.AddFavorite(ctx, u.ID, Favorite{Country: "Chile"})
	require.NoError(t, err)

	favorites, err = repo.AddFavorite(ctx, u.ID, Favorite{Country: "Japan", Flag: "other"})
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	assert.Equal(t, "Japan", favorites[0].Country)
	assert.Equal(t, "https://flags.example/jp.svg", favorites[0].Flag)
	assert.Equal(t, "Chile", favorites[1].Country)
	assert.False(t, favorites[0].AddedAt.IsZero())

	favorites, err = repo.RemoveFavorite(ctx, u.ID, "Japan")
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Chile", favorites[0].Country)

	favorites, err = repo.RemoveFavorite(ctx, u.ID, "Atlantis")
	require.NoError(t, err)
	assert.Len(t, favorites, 1)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, favorites, got.Favorites)
}

func TestSQLRepositoryFavoritesConcurrentAdd(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	u := newTestUser("burst@example.com")
	require.NoError(t, repo.Create(ctx, u))

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddFavorite(ctx, u.ID, Favorite{Country: "Kenya"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	favorites, err := repo.ListFavorites(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, favorites, 1)
}

func TestSQLRepositoryFavoritesUnknownUser(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	id := uuid.New().String()

	_, err := repo.ListFavorites(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.AddFavorite(ctx, id, Favorite{Country: "Chad"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.RemoveFavorite(ctx, id, "Chad")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLRepositoryList(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c_d@example.com"} {
		require.NoError(t, repo.Create(ctx, newTestUser(email)))
	}
	admin := newTestUser("root@example.com")
	admin.Role = RoleAdmin
	require.NoError(t, repo.Create(ctx, admin))

	users, total, err := repo.List(ctx, ListUsersParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, users, 2)

	users, total, err = repo.List(ctx, ListUsersParams{Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "root@example.com", users[0].Email)

	users, total, err = repo.List(ctx, ListUsersParams{Search: "C_D"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "c_d@example.com", users[0].Email)
}
