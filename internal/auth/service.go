// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/middleware"
)

// ErrInvalidCredentials is returned for an unknown email and for a wrong
// password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	TokenVersion int
}

type UserProvider interface {
	GetCredentials(ctx context.Context, email string) (*UserInfo, error)
	UpgradePasswordHash(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	issuer       *Issuer
	userProvider UserProvider
}

func NewService(issuer *Issuer, userProvider UserProvider) *Service {
	return &Service{
		issuer:       issuer,
		userProvider: userProvider,
	}
}

// Authenticate verifies credentials and returns the claims to sign. Every
// failure path performs one full hash verification.
func (s *Service) Authenticate(
	ctx context.Context,
	email, password string,
) (*middleware.SessionClaims, *UserInfo, error) {
	ctx, span := core.StartSpan(ctx, "auth.Authenticate")
	defer span.End()

	email = core.NormalizeEmail(email)
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		//nolint:errcheck // equalize work on rejected input
		_, _, _ = core.VerifyPasswordTimingSafe(password, nil)
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.userProvider.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(password, nil)
			return nil, nil, ErrInvalidCredentials
		}
		core.SetSpanError(ctx, err)
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		password,
		&user.PasswordHash,
	)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, nil, ErrInvalidCredentials
	}

	span.SetAttributes(attribute.String("user.id", user.ID))

	if newHash != "" {
		if err := s.userProvider.UpgradePasswordHash(ctx, user.ID, newHash); err != nil {
			slog.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	return &middleware.SessionClaims{
		ID:           user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}, user, nil
}

// SignIn authenticates and issues a signed session token.
func (s *Service) SignIn(
	ctx context.Context,
	email, password string,
) (*SignInResponse, error) {
	claims, user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.issuer.Issue(*claims)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &SignInResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User: UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	}, nil
}
