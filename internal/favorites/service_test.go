// AngelaMos | 2026
// service_test.go

package favorites

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/user"
)

type memoryStore struct {
	mu    sync.Mutex
	users map[string][]user.Favorite
}

func newMemoryStore(ids ...string) *memoryStore {
	s := &memoryStore{users: map[string][]user.Favorite{}}
	for _, id := range ids {
		s.users[id] = []user.Favorite{}
	}
	return s
}

func (s *memoryStore) ListFavorites(_ context.Context, id string) ([]user.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return slices.Clone(favs), nil
}

func (s *memoryStore) AddFavorite(_ context.Context, id string, fav user.Favorite) ([]user.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	exists := slices.ContainsFunc(favs, func(f user.Favorite) bool {
		return f.Country == fav.Country
	})
	if !exists {
		fav.AddedAt = time.Now().UTC()
		favs = append(favs, fav)
		s.users[id] = favs
	}
	return slices.Clone(favs), nil
}

func (s *memoryStore) RemoveFavorite(_ context.Context, id, country string) ([]user.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	favs = slices.DeleteFunc(favs, func(f user.Favorite) bool {
		return f.Country == country
	})
	s.users[id] = favs
	return slices.Clone(favs), nil
}

func countries(favs []user.Favorite) []string {
	out := make([]string, 0, len(favs))
	for _, f := range favs {
		out = append(out, f.Country)
	}
	return out
}

func TestServiceAddIsIdempotent(t *testing.T) {
	svc := NewService(newMemoryStore("u1"))
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", " Japan ", " https://flags.example/jp.svg ")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", "Chile", "")
	require.NoError(t, err)

	favs, err := svc.Add(ctx, "u1", "Japan", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Japan", "Chile"}, countries(favs))
	assert.Equal(t, "https://flags.example/jp.svg", favs[0].Flag)
}

func TestServiceRemove(t *testing.T) {
	svc := NewService(newMemoryStore("u1"))
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "Japan", "")
	require.NoError(t, err)

	favs, err := svc.Remove(ctx, "u1", "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, []string{"Japan"}, countries(favs))

	favs, err = svc.Remove(ctx, "u1", "Japan")
	require.NoError(t, err)
	assert.Empty(t, favs)

	favs, err = svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestServiceErrors(t *testing.T) {
	svc := NewService(newMemoryStore("u1"))
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "   ", "")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.Remove(ctx, "u1", "")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.List(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = svc.Add(ctx, "ghost", "Japan", "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.List(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
