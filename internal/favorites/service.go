// AngelaMos | 2026
// service.go

package favorites

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/user"
)

// Store is the slice of the user store that owns favorites.
type Store interface {
	ListFavorites(ctx context.Context, id string) ([]user.Favorite, error)
	AddFavorite(ctx context.Context, id string, fav user.Favorite) ([]user.Favorite, error)
	RemoveFavorite(ctx context.Context, id, country string) ([]user.Favorite, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, userID string) ([]user.Favorite, error) {
	if userID == "" {
		return nil, fmt.Errorf("list favorites: %w", core.ErrUnauthorized)
	}

	return s.store.ListFavorites(ctx, userID)
}

// Add inserts country unless it is already a favorite, and returns the
// resulting list in insertion order.
func (s *Service) Add(
	ctx context.Context,
	userID, country, flag string,
) ([]user.Favorite, error) {
	ctx, span := core.StartSpan(ctx, "favorites.Add",
		attribute.String("user.id", userID),
	)
	defer span.End()

	if userID == "" {
		return nil, fmt.Errorf("add favorite: %w", core.ErrUnauthorized)
	}

	country = strings.TrimSpace(country)
	if country == "" {
		return nil, core.ValidationError("country is required")
	}

	favorites, err := s.store.AddFavorite(ctx, userID, user.Favorite{
		Country: country,
		Flag:    strings.TrimSpace(flag),
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return favorites, nil
}

// Remove deletes country from the favorites. Removing an absent country
// is not an error.
func (s *Service) Remove(
	ctx context.Context,
	userID, country string,
) ([]user.Favorite, error) {
	ctx, span := core.StartSpan(ctx, "favorites.Remove",
		attribute.String("user.id", userID),
	)
	defer span.End()

	if userID == "" {
		return nil, fmt.Errorf("remove favorite: %w", core.ErrUnauthorized)
	}

	country = strings.TrimSpace(country)
	if country == "" {
		return nil, core.ValidationError("country is required")
	}

	favorites, err := s.store.RemoveFavorite(ctx, userID, country)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return favorites, nil
}
