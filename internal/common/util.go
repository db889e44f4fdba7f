package common

import (
	"crypto/rand"
	"math/big"
)

const alnumAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MakeRandAlnumString returns a cryptographically random string of n
// ASCII letters and digits.
func MakeRandAlnumString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}

	max := big.NewInt(int64(len(alnumAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alnumAlphabet[idx.Int64()]
	}

	return string(b), nil
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
