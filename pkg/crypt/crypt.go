// Package crypt seals small values with AES-256-GCM. The output is a single
// base64url string carrying nonce, ciphertext and tag, so it fits anywhere a
// string does — the OAuth state parameter is the main customer.
//
//	sealed, err := crypt.EncryptJSON(state)
//	err = crypt.DecryptJSON(sealed, &state)
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/adityaraj/bazario/config"
)

// ErrDecrypt covers every decode, length, and authentication failure so
// callers cannot distinguish tampering from corruption.
var ErrDecrypt = errors.New("crypt: decryption failed")

// aead builds the GCM cipher from the configured secret. APP_KEY wins,
// falling back to JWT_SECRET; SHA-256 stretches either to exactly 32 bytes.
func aead() (cipher.AEAD, error) {
	secret := config.Get("APP_KEY", config.JWTSecret())
	if secret == "" {
		return nil, errors.New("crypt: APP_KEY not configured")
	}
	k := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, fmt.Errorf("crypt: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypt: new GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals a string.
func Encrypt(plaintext string) (string, error) {
	return EncryptBytes([]byte(plaintext))
}

// EncryptBytes seals raw bytes as base64url(nonce || ciphertext || tag).
func EncryptBytes(data []byte) (string, error) {
	gcm, err := aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypt: nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a string produced by Encrypt.
func Decrypt(encoded string) (string, error) {
	b, err := DecryptBytes(encoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecryptBytes opens a sealed base64url string.
func DecryptBytes(encoded string) ([]byte, error) {
	gcm, err := aead()
	if err != nil {
		return nil, err
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecrypt
	}
	if len(data) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// EncryptJSON marshals v and seals the result.
func EncryptJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("crypt: marshal: %w", err)
	}
	return EncryptBytes(raw)
}

// DecryptJSON opens encoded and unmarshals into dest.
func DecryptJSON(encoded string, dest interface{}) error {
	raw, err := DecryptBytes(encoded)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("crypt: unmarshal: %w", err)
	}
	return nil
}

// Hash returns the SHA-256 hex digest of input. The token denylist keys on
// this instead of the raw token.
func Hash(input string) string {
	h := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", h)
}
