// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Hiranx/WorldCountries/internal/auth"
	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/middleware"
)

var ErrDuplicateEmail = errors.New("email already registered")

type UpdateProfileInput struct {
	Name            *string
	Email           *string
	CurrentPassword *string
	NewPassword     *string
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
	}
}

// Register creates an account with role user. The returned record carries
// no password hash.
func (s *Service) Register(
	ctx context.Context,
	name, email, password string,
) (*User, error) {
	ctx, span := core.StartSpan(ctx, "user.Register")
	defer span.End()

	name = strings.TrimSpace(name)
	email = core.NormalizeEmail(email)
	password = strings.TrimSpace(password)

	switch {
	case name == "":
		return nil, core.ValidationError("name is required")
	case email == "":
		return nil, core.ValidationError("email is required")
	case !s.validEmail(email):
		return nil, core.ValidationError("email must be a valid email address")
	case password == "":
		return nil, core.ValidationError("password is required")
	}

	passwordHash, err := core.HashPassword(password)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         RoleUser,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("register: %w", ErrDuplicateEmail)
		}
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("register: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))

	user.PasswordHash = ""
	return user, nil
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile applies the provided fields. A new password requires the
// current one to verify first, and bumps the token version.
func (s *Service) UpdateProfile(
	ctx context.Context,
	userID string,
	in UpdateProfileInput,
) (*User, error) {
	ctx, span := core.StartSpan(ctx, "user.UpdateProfile",
		attribute.String("user.id", userID),
	)
	defer span.End()

	if userID == "" {
		return nil, fmt.Errorf("update profile: %w", core.ErrUnauthorized)
	}

	var fields UpdateFields

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, core.ValidationError("name must not be empty")
		}
		fields.Name = &name
	}

	if in.Email != nil {
		email := core.NormalizeEmail(*in.Email)
		if email == "" {
			return nil, core.ValidationError("email must not be empty")
		}
		if !s.validEmail(email) {
			return nil, core.ValidationError("email must be a valid email address")
		}
		fields.Email = &email
	}

	if in.NewPassword != nil {
		newPassword := strings.TrimSpace(*in.NewPassword)
		if newPassword == "" {
			return nil, core.ValidationError("newPassword must not be empty")
		}

		current := ""
		if in.CurrentPassword != nil {
			current = strings.TrimSpace(*in.CurrentPassword)
		}

		if err := s.checkPassword(ctx, userID, current); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}

		passwordHash, err := core.HashPassword(newPassword)
		if err != nil {
			core.SetSpanError(ctx, err)
			return nil, fmt.Errorf("hash password: %w", err)
		}
		fields.PasswordHash = &passwordHash
		fields.BumpTokenVersion = true
	}

	if fields.IsEmpty() {
		return s.repo.GetByID(ctx, userID)
	}

	user, err := s.repo.Update(ctx, userID, fields)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("update profile: %w", ErrDuplicateEmail)
		}
		if !errors.Is(err, core.ErrNotFound) {
			core.SetSpanError(ctx, err)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}

// DeleteAccount removes the record after the password verifies. Tokens
// already issued for the account are not revoked.
func (s *Service) DeleteAccount(
	ctx context.Context,
	userID, password string,
) error {
	ctx, span := core.StartSpan(ctx, "user.DeleteAccount",
		attribute.String("user.id", userID),
	)
	defer span.End()

	if userID == "" {
		return fmt.Errorf("delete account: %w", core.ErrUnauthorized)
	}

	if err := s.checkPassword(ctx, userID, strings.TrimSpace(password)); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			core.SetSpanError(ctx, err)
		}
		return fmt.Errorf("delete account: %w", err)
	}

	return nil
}

// ResetPassword sets a new password for the account registered under
// email. The caller proves nothing about owning the account.
func (s *Service) ResetPassword(
	ctx context.Context,
	email, newPassword string,
) error {
	ctx, span := core.StartSpan(ctx, "user.ResetPassword")
	defer span.End()

	email = core.NormalizeEmail(email)
	newPassword = strings.TrimSpace(newPassword)

	switch {
	case email == "":
		return core.ValidationError("email is required")
	case newPassword == "":
		return core.ValidationError("newPassword is required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	passwordHash, err := core.HashPassword(newPassword)
	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.repo.Update(ctx, user.ID, UpdateFields{
		PasswordHash:     &passwordHash,
		BumpTokenVersion: true,
	}); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	slog.WarnContext(ctx, "password reset without authentication",
		"user_id", user.ID,
	)
	return nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

// UpdateUserRole is the only path that can grant admin. It bumps the
// token version so the old role claim can be detected as stale.
func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	return s.repo.Update(ctx, id, UpdateFields{
		Role:             &role,
		BumpTokenVersion: true,
	})
}

func (s *Service) validEmail(email string) bool {
	return s.validate.Var(email, "email") == nil
}

// checkPassword returns auth.ErrInvalidCredentials unless password matches
// the stored hash for userID.
func (s *Service) checkPassword(
	ctx context.Context,
	userID, password string,
) error {
	user, err := s.repo.GetWithSecretByID(ctx, userID)
	if err != nil {
		return err
	}

	if password == "" {
		return auth.ErrInvalidCredentials
	}

	valid, err := core.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return auth.ErrInvalidCredentials
	}

	return nil
}

func (s *Service) GetCredentials(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetWithSecretByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return &auth.UserInfo{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}, nil
}

// UpgradePasswordHash stores a rehashed digest of the same password, so
// the token version is left alone.
func (s *Service) UpgradePasswordHash(
	ctx context.Context,
	userID, passwordHash string,
) error {
	_, err := s.repo.Update(ctx, userID, UpdateFields{
		PasswordHash: &passwordHash,
	})
	return err
}

func (s *Service) CurrentAccount(
	ctx context.Context,
	id string,
) (string, int, error) {
	user, err := s.repo.GetWithSecretByID(ctx, id)
	if err != nil {
		return "", 0, err
	}
	return user.Role, user.TokenVersion, nil
}

var (
	_ auth.UserProvider        = (*Service)(nil)
	_ middleware.AccountLookup = (*Service)(nil)
)
