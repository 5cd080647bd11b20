// Package cypher encrypts sensitive user fields and derives stable identifiers.
package cypher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLength  = 32
	iterations = 100000

	DefaultHashAlgorithm = "sha256"
)

var hashes = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// Cypher holds the AES key derived from the configured password and salt.
type Cypher struct {
	key  []byte
	aead cipher.AEAD
}

// New derives the key with PBKDF2-HMAC-SHA256.
func New(password, salt string) (*Cypher, error) {
	if password == "" || salt == "" {
		return nil, errors.New("cypher password and salt are required")
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cypher{key: key, aead: aead}, nil
}

// Encrypt seals plaintext under a fresh nonce. The nonce is prepended to the
// sealed box and the result is base64 encoded.
func (c *Cypher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cypher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &apperror.DecryptionError{Err: fmt.Errorf("malformed ciphertext: %w", err)}
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return "", &apperror.DecryptionError{Err: errors.New("ciphertext too short")}
	}
	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", &apperror.DecryptionError{Err: err}
	}

	return string(plaintext), nil
}

// EncryptNullable returns nil for a nil input.
func (c *Cypher) EncryptNullable(plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}
	out, err := c.Encrypt(*plaintext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DecryptNullable returns nil for a nil input.
func (c *Cypher) DecryptNullable(ciphertext *string) (*string, error) {
	if ciphertext == nil {
		return nil, nil
	}
	out, err := c.Decrypt(*ciphertext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Sign returns the hex HMAC-SHA256 of data under the derived key.
func (c *Cypher) Sign(data string) string {
	return HMACSHA256(c.key, data)
}

// Hash returns the hex digest of data. The algorithm defaults to sha256.
func Hash(data string, algorithm ...string) (string, error) {
	name := DefaultHashAlgorithm
	if len(algorithm) > 0 && algorithm[0] != "" {
		name = algorithm[0]
	}
	newHash, ok := hashes[name]
	if !ok {
		return "", fmt.Errorf("unsupported hash algorithm %q", name)
	}
	h := newHash()
	h.Write([]byte(data))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// GenerateHash is Hash with sha256.
func GenerateHash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// HMACSHA256 returns the hex HMAC-SHA256 of data under key.
func HMACSHA256(key []byte, data string) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))

	return hex.EncodeToString(h.Sum(nil))
}
