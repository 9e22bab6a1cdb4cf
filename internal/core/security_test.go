// AngelaMos | 2026
// security_test.go

package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
	assert.NotContains(t, hash, "correct horse")

	valid, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = VerifyPassword("Correct horse battery staple", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	first, err := HashPassword("same-password")
	require.NoError(t, err)
	second, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHashPasswordEmpty(t *testing.T) {
	hash, err := HashPassword("")
	require.NoError(t, err)

	valid, err := VerifyPassword("", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = VerifyPassword("x", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyPasswordBcrypt(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost, 10, 12} {
		digest, err := bcrypt.GenerateFromPassword([]byte("legacy-secret"), cost)
		require.NoError(t, err)

		valid, err := VerifyPassword("legacy-secret", string(digest))
		require.NoError(t, err)
		assert.True(t, valid, "cost %d", cost)

		valid, err = VerifyPassword("wrong", string(digest))
		require.NoError(t, err)
		assert.False(t, valid, "cost %d", cost)
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"plaintext", "hunter2"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"truncated bcrypt", "$2a$10$short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := VerifyPassword("anything", tt.hash)
			require.Error(t, err)
			assert.False(t, valid)
		})
	}
}

func TestVerifyPasswordUnsupportedIsTyped(t *testing.T) {
	_, err := VerifyPassword("anything", "$scrypt$x$y$z$w")
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

func TestNeedsRehash(t *testing.T) {
	current, err := HashPassword("pw")
	require.NoError(t, err)
	assert.False(t, needsRehash(current))

	legacy, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, needsRehash(string(legacy)))

	weaker := strings.Replace(current, "m=65536,t=1,p=4", "m=32768,t=1,p=4", 1)
	assert.True(t, needsRehash(weaker))
}

func TestVerifyPasswordWithRehash(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	valid, newHash, err := VerifyPasswordWithRehash("pw", string(legacy))
	require.NoError(t, err)
	assert.True(t, valid)
	require.NotEmpty(t, newHash)
	assert.True(t, strings.HasPrefix(newHash, argonPrefix))

	valid, err = VerifyPassword("pw", newHash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, newHash, err = VerifyPasswordWithRehash("nope", string(legacy))
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, newHash)

	current, err := HashPassword("pw")
	require.NoError(t, err)
	valid, newHash, err = VerifyPasswordWithRehash("pw", current)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, newHash)
}

func TestVerifyPasswordTimingSafe(t *testing.T) {
	valid, newHash, err := VerifyPasswordTimingSafe("no-such-account", nil)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, newHash)

	empty := ""
	valid, _, err = VerifyPasswordTimingSafe("pw", &empty)
	require.NoError(t, err)
	assert.False(t, valid)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	valid, _, err = VerifyPasswordTimingSafe("pw", &hash)
	require.NoError(t, err)
	assert.True(t, valid)
}
