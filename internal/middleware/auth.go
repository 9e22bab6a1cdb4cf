// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Hiranx/WorldCountries/internal/core"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
	ClaimsKey   contextKey = "session_claims"
)

// SessionClaims is the identity carried by a signed session token.
type SessionClaims struct {
	ID           string
	Role         string
	TokenVersion int
	ExpiresAt    time.Time
}

type TokenVerifier interface {
	Validate(ctx context.Context, token string) (*SessionClaims, error)
}

// AccountLookup reads the live role and token version of an account.
// It returns an error wrapping core.ErrNotFound when the account is gone.
type AccountLookup interface {
	CurrentAccount(
		ctx context.Context,
		id string,
	) (role string, tokenVersion int, err error)
}

type AuthConfig struct {
	CookieName string

	// When EnforceTokenVersion is set, tokens whose version is behind the
	// stored one, or whose account no longer exists, are rejected.
	EnforceTokenVersion bool
	Accounts            AccountLookup
}

func Authenticator(
	verifier TokenVerifier,
	cfg AuthConfig,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, cfg.CookieName)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing session token"),
				)
				return
			}

			claims, err := verifier.Validate(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			if cfg.EnforceTokenVersion && cfg.Accounts != nil {
				if err := checkTokenVersion(r.Context(), cfg.Accounts, claims); err != nil {
					handleAuthError(w, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func checkTokenVersion(
	ctx context.Context,
	accounts AccountLookup,
	claims *SessionClaims,
) error {
	_, version, err := accounts.CurrentAccount(ctx, claims.ID)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrTokenInvalid
	}
	if err != nil {
		return err
	}

	if claims.TokenVersion != version {
		return core.ErrTokenInvalid
	}
	return nil
}

// RequireAdmin re-reads the caller's role from the store instead of
// trusting the role claim, which may predate a demotion.
func RequireAdmin(accounts AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("authentication required"),
				)
				return
			}

			role, _, err := accounts.CurrentAccount(r.Context(), userID)
			if errors.Is(err, core.ErrNotFound) {
				core.JSONError(
					w,
					core.UnauthorizedError("account no longer exists"),
				)
				return
			}
			if err != nil {
				core.InternalServerError(w, err)
				return
			}

			if role != "admin" {
				core.JSONError(
					w,
					core.ForbiddenError("insufficient permissions"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken reads a bearer token, falling back to the session cookie.
func ExtractToken(r *http.Request, cookieName string) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookieName == "" {
		return ""
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(cookie.Value)
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenInvalid):
		core.JSONError(w, core.TokenInvalidError())
	default:
		slog.Error("session check failed", "error", err)
		core.JSONError(w, core.ServiceUnavailableError())
	}
}

func WithClaims(ctx context.Context, claims *SessionClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.ID)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	return context.WithValue(ctx, ClaimsKey, claims)
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if role, ok := ctx.Value(UserRoleKey).(string); ok {
		return role
	}
	return ""
}

func GetClaims(ctx context.Context) *SessionClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*SessionClaims); ok {
		return claims
	}
	return nil
}
