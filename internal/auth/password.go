package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. KeyIterations is a security parameter; lowering it
// weakens every stored hash.
const (
	SaltBytes     = 16
	TokenBytes    = 16
	KeyIterations = 100000
	KeyLength     = 32
)

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: byte length %d is negative", ErrInvalidArgument, n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return b, nil
}

// DeriveKey runs PBKDF2-HMAC-SHA256. The result depends only on its inputs.
func DeriveKey(password string, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive", ErrInvalidArgument)
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: key length must be positive", ErrInvalidArgument)
	}
	return pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New), nil
}

// EncodeHex returns lowercase hex, two digits per byte.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex parses a hex string produced by EncodeHex.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return b, nil
}

// HashPassword generates a fresh salt and derives the stored key for
// password. Both are returned hex encoded.
func HashPassword(password string) (saltHex, hashHex string, err error) {
	salt, err := RandomBytes(SaltBytes)
	if err != nil {
		return "", "", fmt.Errorf("generating salt: %w", err)
	}
	key, err := DeriveKey(password, salt, KeyIterations, KeyLength)
	if err != nil {
		return "", "", err
	}
	return EncodeHex(salt), EncodeHex(key), nil
}

// VerifyPassword re-derives the key for password with the stored salt and
// compares it in constant time.
func VerifyPassword(password, saltHex, hashHex string) (bool, error) {
	salt, err := DecodeHex(saltHex)
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	want, err := DecodeHex(hashHex)
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}
	if len(want) == 0 {
		return false, fmt.Errorf("%w: empty hash", ErrInvalidArgument)
	}

	got, err := DeriveKey(password, salt, KeyIterations, len(want))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// newToken returns a hex session token.
func newToken() (string, error) {
	b, err := RandomBytes(TokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return EncodeHex(b), nil
}
