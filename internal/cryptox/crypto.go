// Package cryptox implements salted PBKDF2 password hashing.
//
// Hashes use the self-describing format
//
//	pbkdf2:<digest>:<iterations>$<salt>$<hex key>
//
// which is the format produced by Werkzeug's generate_password_hash, so
// credentials created by earlier deployments keep verifying.
package cryptox

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/duplofs/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor for new hashes.
	DefaultIterations = 600000

	saltLength = 16
	methodName = "pbkdf2"
	digestName = "sha256"
)

// ErrUnsupportedHash is returned for stored hashes this package cannot parse.
var ErrUnsupportedHash = errors.New("unsupported password hash")

// HashPassword derives a PBKDF2-HMAC-SHA256 hash of password with a fresh
// random salt. iterations <= 0 selects DefaultIterations.
func HashPassword(password string, iterations int) (string, error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	salt, err := common.MakeRandAlnumString(saltLength)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(sha256.New, password, salt, iterations)
	defer common.WipeByteArray(key)

	return fmt.Sprintf("%s:%s:%d$%s$%s", methodName, digestName, iterations, salt, hex.EncodeToString(key)), nil
}

// CheckPasswordHash reports whether password matches the stored hash.
// Malformed or unsupported hashes never match.
func CheckPasswordHash(stored, password string) bool {
	ok, err := verify(stored, password)
	return err == nil && ok
}

func verify(stored, password string) (bool, error) {
	method, salt, want, ok := splitHash(stored)
	if !ok {
		return false, ErrUnsupportedHash
	}

	newHash, iterations, err := parseMethod(method)
	if err != nil {
		return false, err
	}

	wantKey, err := hex.DecodeString(want)
	if err != nil || len(wantKey) == 0 {
		return false, ErrUnsupportedHash
	}

	got := pbkdf2.Key([]byte(password), []byte(salt), iterations, len(wantKey), newHash)
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, wantKey) == 1, nil
}

func splitHash(stored string) (method, salt, key string, ok bool) {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// parseMethod handles "pbkdf2:<digest>[:<iterations>]".
func parseMethod(method string) (func() hash.Hash, int, error) {
	parts := strings.Split(method, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != methodName {
		return nil, 0, ErrUnsupportedHash
	}

	var newHash func() hash.Hash
	switch parts[1] {
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	default:
		return nil, 0, fmt.Errorf("%w: digest %q", ErrUnsupportedHash, parts[1])
	}

	iterations := DefaultIterations
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n <= 0 {
			return nil, 0, fmt.Errorf("%w: iterations %q", ErrUnsupportedHash, parts[2])
		}
		iterations = n
	}

	return newHash, iterations, nil
}

func deriveKey(newHash func() hash.Hash, password, salt string, iterations int) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), iterations, newHash().Size(), newHash)
}
