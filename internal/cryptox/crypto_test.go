package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

const testIterations = 1000

func TestHashPassword_Format(t *testing.T) {
	h, err := HashPassword("correct horse", testIterations)
	require.NoError(t, err)

	parts := strings.Split(h, "$")
	require.Len(t, parts, 3)
	assert.Equal(t, "pbkdf2:sha256:1000", parts[0])
	assert.Len(t, parts[1], saltLength)
	assert.Len(t, parts[2], 64, "sha256 key is 32 bytes hex encoded")
}

func TestHashPassword_DefaultIterations(t *testing.T) {
	h, err := HashPassword("pw", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "pbkdf2:sha256:600000$"), h)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	a, err := HashPassword("same", testIterations)
	require.NoError(t, err)
	b, err := HashPassword("same", testIterations)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCheckPasswordHash_RoundTrip(t *testing.T) {
	h, err := HashPassword("correct", testIterations)
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash(h, "correct"))
	assert.False(t, CheckPasswordHash(h, "wrong"))
	assert.False(t, CheckPasswordHash(h, ""))
}

func TestCheckPasswordHash_ExternalHash(t *testing.T) {
	// Built the same way Werkzeug does: hex(pbkdf2_hmac("sha256", pw, salt, n)).
	salt := "AbCdEfGh12345678"
	key := pbkdf2.Key([]byte("s3cret"), []byte(salt), 2000, 32, sha256.New)
	stored := "pbkdf2:sha256:2000$" + salt + "$" + hex.EncodeToString(key)

	assert.True(t, CheckPasswordHash(stored, "s3cret"))
	assert.False(t, CheckPasswordHash(stored, "S3cret"))
}

func TestCheckPasswordHash_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{name: "empty", stored: ""},
		{name: "no separators", stored: "pbkdf2:sha256:1000"},
		{name: "scrypt", stored: "scrypt:32768:8:1$salt$abcd"},
		{name: "unknown digest", stored: "pbkdf2:md5:1000$salt$abcd"},
		{name: "bad iterations", stored: "pbkdf2:sha256:abc$salt$abcd"},
		{name: "zero iterations", stored: "pbkdf2:sha256:0$salt$abcd"},
		{name: "non hex key", stored: "pbkdf2:sha256:1000$salt$zzzz"},
		{name: "empty key", stored: "pbkdf2:sha256:1000$salt$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, CheckPasswordHash(tt.stored, "pw"))
			_, err := verify(tt.stored, "pw")
			assert.True(t, errors.Is(err, ErrUnsupportedHash), "got %v", err)
		})
	}
}
