package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// NonceSize - размер nonce для AES-GCM
const NonceSize = 12

// ErrSealBroken - данные повреждены, ключ не тот или привязка не совпала
var ErrSealBroken = errors.New("sealed data cannot be opened")

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != Argon2KeyLen {
		return nil, fmt.Errorf("key must be %d bytes, got %d", Argon2KeyLen, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// Seal шифрует plaintext AES-256-GCM и привязывает его к binding (additional data).
// Результат в Base64: nonce + ciphertext + tag.
func Seal(plaintext, key []byte, binding string) (string, error) {
	if len(plaintext) == 0 {
		return "", fmt.Errorf("plaintext cannot be empty")
	}

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, []byte(binding))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Any mismatch (key, binding, corrupted data) is ErrSealBroken.
func Open(sealed string, key []byte, binding string) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealBroken, err)
	}
	if len(data) < NonceSize+aead.Overhead() {
		return nil, fmt.Errorf("%w: data too short", ErrSealBroken)
	}

	plaintext, err := aead.Open(nil, data[:NonceSize], data[NonceSize:], []byte(binding))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealBroken, err)
	}
	return plaintext, nil
}
