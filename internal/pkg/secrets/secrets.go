/*
Package secrets provides authenticated encryption for token values at rest.

Token plaintexts are sealed with AES-256-GCM before they touch disk. The key
is derived once at startup from the configured secret via scrypt, so the
stored records are useless without the server's secret.
*/
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// keySalt is a fixed application-scoped salt for key derivation. The secret
// itself is the guarded input; the salt only separates this deployment's key
// space from other scrypt users.
const keySalt = "tlschat.token.key.v1"

// ErrInvalidCiphertext indicates a sealed value that is malformed or was not
// produced under the current key.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Sealer encrypts and decrypts short strings with a single AEAD key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256 key from the given secret and returns a
// ready-to-use Sealer.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}

	key, err := scrypt.Key([]byte(secret), []byte(keySalt), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal encrypts the plaintext and returns base64(nonce || ciphertext).
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal and returns the plaintext.
func (s *Sealer) Open(sealed string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrInvalidCiphertext, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(decoded) < nonceSize {
		return "", fmt.Errorf("%w: too short", ErrInvalidCiphertext)
	}

	plaintext, err := s.aead.Open(nil, decoded[:nonceSize], decoded[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	return string(plaintext), nil
}
