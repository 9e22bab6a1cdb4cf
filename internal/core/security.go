// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLength   = 16

	argonPrefix = "$argon2id$"
)

var ErrUnsupportedHash = errors.New("unsupported password hash")

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var currentParams = argonParams{
	memory:  argonMemory,
	time:    argonTime,
	threads: argonThreads,
	keyLen:  argonKeyLen,
}

// argonDigest is the decoded form of a PHC string:
// $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
type argonDigest struct {
	params argonParams
	salt   []byte
	key    []byte
}

func (d argonDigest) String() string {
	return fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argonPrefix,
		argon2.Version,
		d.params.memory,
		d.params.time,
		d.params.threads,
		base64.RawStdEncoding.EncodeToString(d.salt),
		base64.RawStdEncoding.EncodeToString(d.key),
	)
}

func (d argonDigest) matches(password string) bool {
	candidate := deriveKey(password, d.salt, d.params)
	return subtle.ConstantTimeCompare(d.key, candidate) == 1
}

func deriveKey(password string, salt []byte, p argonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

// HashPassword derives an argon2id digest in PHC string form with a fresh
// random salt and the current work factor.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	return argonDigest{
		params: currentParams,
		salt:   salt,
		key:    deriveKey(password, salt, currentParams),
	}.String(), nil
}

// VerifyPassword reports whether password matches encodedHash. Parameters
// are always read from the digest, so argon2id digests with other costs and
// bcrypt digests of any cost verify. A mismatch is (false, nil).
func VerifyPassword(password, encodedHash string) (bool, error) {
	if isBcryptHash(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}

	digest, err := parseArgonDigest(encodedHash)
	if err != nil {
		return false, err
	}

	return digest.matches(password), nil
}

// VerifyPasswordWithRehash also returns a replacement digest when the
// stored one is bcrypt or uses outdated argon2id parameters. The
// replacement is empty when the password is wrong or nothing changed.
func VerifyPasswordWithRehash(
	password, encodedHash string,
) (bool, string, error) {
	valid, err := VerifyPassword(password, encodedHash)
	if err != nil || !valid {
		return false, "", err
	}

	if !needsRehash(encodedHash) {
		return true, "", nil
	}

	newHash, err := HashPassword(password)
	if err != nil {
		//nolint:nilerr // the password verified; a failed upgrade is retried next sign-in
		return true, "", nil
	}
	return true, newHash, nil
}

var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("no-such-account")
	if err != nil {
		panic(fmt.Sprintf("security: generate dummy hash: %v", err))
	}
	return hash
})

// VerifyPasswordTimingSafe runs a full verification even when no digest is
// known, so a missing account costs the same hash work as a wrong password.
func VerifyPasswordTimingSafe(
	password string,
	encodedHash *string,
) (bool, string, error) {
	if encodedHash == nil || *encodedHash == "" {
		_, _, _ = VerifyPasswordWithRehash(password, dummyHash())
		return false, "", nil
	}

	return VerifyPasswordWithRehash(password, *encodedHash)
}

func parseArgonDigest(encodedHash string) (argonDigest, error) {
	var d argonDigest

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return d, fmt.Errorf("invalid hash format: %w", ErrUnsupportedHash)
	}
	if parts[1] != "argon2id" {
		return d, fmt.Errorf("algorithm %q: %w", parts[1], ErrUnsupportedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return d, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return d, fmt.Errorf("argon2 version %d: %w", version, ErrUnsupportedHash)
	}

	if _, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&d.params.memory,
		&d.params.time,
		&d.params.threads,
	); err != nil {
		return d, fmt.Errorf("invalid params: %w", err)
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return d, fmt.Errorf("decode salt: %w", err)
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return d, fmt.Errorf("decode hash: %w", err)
	}

	//nolint:gosec // G115: argon2id keys are a few dozen bytes
	d.params.keyLen = uint32(len(d.key))

	return d, nil
}

func needsRehash(encodedHash string) bool {
	if !strings.HasPrefix(encodedHash, argonPrefix) {
		return true
	}

	digest, err := parseArgonDigest(encodedHash)
	if err != nil {
		return true
	}

	return digest.params != currentParams
}

func isBcryptHash(encodedHash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encodedHash, prefix) {
			return true
		}
	}
	return false
}

func verifyBcrypt(password, encodedHash string) (bool, error) {
	if _, err := bcrypt.Cost([]byte(encodedHash)); err != nil {
		return false, fmt.Errorf("bcrypt digest: %w", ErrUnsupportedHash)
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt compare: %w", err)
	}
}
