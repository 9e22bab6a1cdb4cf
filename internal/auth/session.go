// AngelaMos | 2026
// session.go

package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/Hiranx/WorldCountries/internal/config"
	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/middleware"
)

const tokenTypeSession = "session"

// Issuer signs and validates stateless session tokens. There is no
// server-side session table and no revocation list.
type Issuer struct {
	signKey    jwk.Key
	verifyKey  jwk.Key
	alg        jwa.SignatureAlgorithm
	publicJWKS jwk.Set
	config     config.SessionConfig
	now        func() time.Time
}

func NewIssuer(cfg config.SessionConfig) (*Issuer, error) {
	if cfg.UsesKeyPair() {
		return newKeyPairIssuer(cfg)
	}
	return newSecretIssuer(cfg)
}

func newKeyPairIssuer(cfg config.SessionConfig) (*Issuer, error) {
	privateKeyPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	privateKey, err := jwk.ParseKey(privateKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKeyPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	publicKey, err := jwk.ParseKey(publicKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	for _, key := range []jwk.Key{privateKey, publicKey} {
		if setErr := key.Set(jwk.AlgorithmKey, jwa.ES256()); setErr != nil {
			return nil, fmt.Errorf("set algorithm: %w", setErr)
		}
	}

	if err := jwk.AssignKeyID(publicKey); err != nil {
		return nil, fmt.Errorf("assign key id: %w", err)
	}

	var keyID string
	if err := publicKey.Get(jwk.KeyIDKey, &keyID); err != nil {
		return nil, fmt.Errorf("read key id: %w", err)
	}
	if err := privateKey.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("set key id: %w", err)
	}

	if err := publicKey.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	publicJWKS := jwk.NewSet()
	if err := publicJWKS.AddKey(publicKey); err != nil {
		return nil, fmt.Errorf("add key to set: %w", err)
	}

	return &Issuer{
		signKey:    privateKey,
		verifyKey:  publicKey,
		alg:        jwa.ES256(),
		publicJWKS: publicJWKS,
		config:     cfg,
		now:        time.Now,
	}, nil
}

func newSecretIssuer(cfg config.SessionConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret: %w", core.ErrInvalidInput)
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import session secret: %w", err)
	}

	return &Issuer{
		signKey:   key,
		verifyKey: key,
		alg:       jwa.HS256(),
		config:    cfg,
		now:       time.Now,
	}, nil
}

// GenerateKeyPair writes a fresh P-256 key pair in PEM form.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	jwkPrivate, err := jwk.Import(privateKey)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}

	privatePEM, err := jwk.Pem(jwkPrivate)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	if writeErr := os.WriteFile(privateKeyPath, privatePEM, 0o600); writeErr != nil {
		return fmt.Errorf("write private key: %w", writeErr)
	}

	jwkPublic, err := jwkPrivate.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	publicPEM, err := jwk.Pem(jwkPublic)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	//nolint:gosec // G306: public key is intentionally world-readable
	if writeErr := os.WriteFile(publicKeyPath, publicPEM, 0o644); writeErr != nil {
		return fmt.Errorf("write public key: %w", writeErr)
	}

	return nil
}

// Issue signs claims with the configured expiry window.
func (s *Issuer) Issue(
	claims middleware.SessionClaims,
) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.Expire)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(s.config.Issuer).
		Audience([]string{s.config.Audience}).
		Subject(claims.ID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Claim("role", claims.Role).
		Claim("token_version", claims.TokenVersion).
		Claim("type", tokenTypeSession).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(s.alg, s.signKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt.Truncate(time.Second), nil
}

// Validate checks signature, expiry, issuer and audience. It fails with
// core.ErrTokenExpired past expiry and core.ErrTokenInvalid otherwise.
func (s *Issuer) Validate(
	ctx context.Context,
	tokenString string,
) (*middleware.SessionClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(s.alg, s.verifyKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(s.config.Audience),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, fmt.Errorf("validate token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("validate token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err != nil ||
		tokenType != tokenTypeSession {
		return nil, fmt.Errorf(
			"validate token: invalid token type: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"validate token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var role string
	if err := token.Get("role", &role); err != nil {
		return nil, fmt.Errorf(
			"validate token: missing role claim: %w",
			core.ErrTokenInvalid,
		)
	}

	var version float64
	if err := token.Get("token_version", &version); err != nil {
		return nil, fmt.Errorf(
			"validate token: missing token_version claim: %w",
			core.ErrTokenInvalid,
		)
	}

	expiresAt, _ := token.Expiration()

	return &middleware.SessionClaims{
		ID:           subject,
		Role:         role,
		TokenVersion: int(version),
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Issuer) Algorithm() string {
	return s.alg.String()
}

// JWKSHandler publishes the verification key. In shared-secret mode there
// is nothing to publish and it answers 404.
func (s *Issuer) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.publicJWKS == nil {
			core.NotFound(w, "key set")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")

		if err := json.NewEncoder(w).Encode(s.publicJWKS); err != nil {
			http.Error(
				w,
				"Internal Server Error",
				http.StatusInternalServerError,
			)
			return
		}
	}
}

func (s *Issuer) KeyID() string {
	var kid string
	if s.publicJWKS == nil {
		return ""
	}
	//nolint:errcheck // key ID always set during newKeyPairIssuer
	_ = s.verifyKey.Get(jwk.KeyIDKey, &kid)
	return kid
}
