// AngelaMos | 2026
// session_test.go

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hiranx/WorldCountries/internal/config"
	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/middleware"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func secretConfig() config.SessionConfig {
	return config.SessionConfig{
		Expire:   time.Hour,
		Issuer:   "worldcountries",
		Audience: "worldcountries-web",
		Secret:   testSecret,
	}
}

func newSecretIssuerForTest(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(secretConfig())
	require.NoError(t, err)
	return issuer
}

func newKeyPairIssuerForTest(t *testing.T) *Issuer {
	t.Helper()

	dir := t.TempDir()
	cfg := secretConfig()
	cfg.Secret = ""
	cfg.PrivateKeyPath = filepath.Join(dir, "private.pem")
	cfg.PublicKeyPath = filepath.Join(dir, "public.pem")

	require.NoError(t, GenerateKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath))

	issuer, err := NewIssuer(cfg)
	require.NoError(t, err)
	return issuer
}

func TestIssuerRoundTrip(t *testing.T) {
	issuers := map[string]*Issuer{
		"HS256": newSecretIssuerForTest(t),
		"ES256": newKeyPairIssuerForTest(t),
	}

	for alg, issuer := range issuers {
		t.Run(alg, func(t *testing.T) {
			assert.Equal(t, alg, issuer.Algorithm())

			token, expiresAt, err := issuer.Issue(middleware.SessionClaims{
				ID:           "user-1",
				Role:         "admin",
				TokenVersion: 3,
			})
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

			claims, err := issuer.Validate(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.ID)
			assert.Equal(t, "admin", claims.Role)
			assert.Equal(t, 3, claims.TokenVersion)
			assert.True(t, claims.ExpiresAt.Equal(expiresAt))
		})
	}
}

func TestIssuerRejectsExpired(t *testing.T) {
	issuer := newSecretIssuerForTest(t)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := issuer.Issue(middleware.SessionClaims{ID: "user-1", Role: "user"})
	require.NoError(t, err)

	_, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestIssuerRejectsTampered(t *testing.T) {
	issuer := newSecretIssuerForTest(t)

	token, _, err := issuer.Issue(middleware.SessionClaims{ID: "user-1", Role: "user"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = issuer.Validate(context.Background(), tampered)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = issuer.Validate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestIssuerRejectsForeignTokens(t *testing.T) {
	issuer := newSecretIssuerForTest(t)

	otherCfg := secretConfig()
	otherCfg.Audience = "someone-else"
	other, err := NewIssuer(otherCfg)
	require.NoError(t, err)

	token, _, err := other.Issue(middleware.SessionClaims{ID: "user-1", Role: "user"})
	require.NoError(t, err)
	_, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	otherCfg = secretConfig()
	otherCfg.Secret = strings.Repeat("z", 32)
	other, err = NewIssuer(otherCfg)
	require.NoError(t, err)

	token, _, err = other.Issue(middleware.SessionClaims{ID: "user-1", Role: "user"})
	require.NoError(t, err)
	_, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	keyPair := newKeyPairIssuerForTest(t)
	token, _, err = issuer.Issue(middleware.SessionClaims{ID: "user-1", Role: "user"})
	require.NoError(t, err)
	_, err = keyPair.Validate(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestJWKSHandler(t *testing.T) {
	keyPair := newKeyPairIssuerForTest(t)
	require.NotEmpty(t, keyPair.KeyID())

	rec := httptest.NewRecorder()
	keyPair.JWKSHandler()(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "EC", set.Keys[0]["kty"])
	assert.Equal(t, keyPair.KeyID(), set.Keys[0]["kid"])
	assert.NotContains(t, set.Keys[0], "d")

	secret := newSecretIssuerForTest(t)
	assert.Empty(t, secret.KeyID())

	rec = httptest.NewRecorder()
	secret.JWKSHandler()(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
