// Package crypto encrypts config values at rest with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required AES-256 key length in bytes.
const KeySize = 32

var (
	// ErrInvalidKey is returned when a key is not 32 raw bytes or 64 hex characters.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes or 64 hex characters")

	// ErrCorrupted is returned when ciphertext was not produced by this scheme
	// or was produced with a different key.
	ErrCorrupted = errors.New("ciphertext corrupted")
)

// ParseKey decodes a key given either as 32 raw bytes or as 64 hex characters.
func ParseKey(raw string) ([]byte, error) {
	switch len(raw) {
	case KeySize:
		return []byte(raw), nil
	case 2 * KeySize:
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	default:
		return nil, ErrInvalidKey
	}
}

// Cipher encrypts and decrypts strings with a fixed AES-256-GCM key.
type Cipher struct {
	gcm cipher.AEAD
}

// New creates a Cipher. key must be exactly 32 bytes.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return &Cipher{gcm: gcm}, nil
}

// Encrypt returns base64(nonce || ciphertext || tag). A fresh nonce is drawn
// for every call, so encrypting the same plaintext twice yields different output.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any input not produced by Encrypt with the same
// key fails with an error wrapping ErrCorrupted.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", ErrCorrupted, err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize+c.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrCorrupted)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: gcm.Open: %v", ErrCorrupted, err)
	}

	return string(plaintext), nil
}

// Encrypt is a one-shot helper around New(key).Encrypt.
func Encrypt(plaintext string, key []byte) (string, error) {
	c, err := New(key)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

// Decrypt is a one-shot helper around New(key).Decrypt.
func Decrypt(ciphertext string, key []byte) (string, error) {
	c, err := New(key)
	if err != nil {
		return "", err
	}
	return c.Decrypt(ciphertext)
}
