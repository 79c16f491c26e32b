package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	encPrefix = "enc:"
	saltSize  = 16
)

// AESContentEncryptor encrypts memory content at rest with AES-256-GCM.
// The key is derived from a passphrase via Argon2id. Each ciphertext
// carries its salt, so records survive process restarts and passphrase
// rotation is a matter of re-writing records.
type AESContentEncryptor struct {
	mu         sync.RWMutex
	passphrase string
	salt       []byte // salt used for new encryptions
	key        []byte // key derived from passphrase+salt
}

// NewAESContentEncryptor creates an encryptor from a passphrase.
func NewAESContentEncryptor(passphrase string) (*AESContentEncryptor, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	return &AESContentEncryptor{
		passphrase: passphrase,
		salt:       salt,
		key:        deriveContentKey(passphrase, salt),
	}, nil
}

// Encrypt returns "enc:" + base64(salt + nonce + ciphertext).
func (e *AESContentEncryptor) Encrypt(plaintext string) (string, error) {
	e.mu.RLock()
	salt := append([]byte(nil), e.salt...)
	key := append([]byte(nil), e.key...)
	e.mu.RUnlock()

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	payload := append(append(salt, nonce...), sealed...)
	return encPrefix + base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt decrypts ciphertext. Input without the "enc:" prefix is
// returned as-is (plaintext passthrough for legacy rows).
func (e *AESContentEncryptor) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, encPrefix) {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, encPrefix))
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	if len(data) < saltSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	salt, rest := data[:saltSize], data[saltSize:]
	gcm, err := newGCM(e.keyForSalt(salt))
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := rest[:nonceSize], rest[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(plaintext), nil
}

// IsEncrypted checks if a string has the "enc:" prefix.
func (e *AESContentEncryptor) IsEncrypted(s string) bool {
	return strings.HasPrefix(s, encPrefix)
}

// Zeroize clears the key bytes from memory. Call on shutdown.
func (e *AESContentEncryptor) Zeroize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.key {
		e.key[i] = 0
	}
}

// keyForSalt returns the cached key when the salt matches the current
// one, otherwise derives a fresh key for the record's salt.
func (e *AESContentEncryptor) keyForSalt(salt []byte) []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if string(salt) == string(e.salt) {
		return append([]byte(nil), e.key...)
	}
	return deriveContentKey(e.passphrase, salt)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveContentKey uses Argon2id to derive a 32-byte key.
func deriveContentKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// NoopEncryptor passes content through unchanged. Used when no
// passphrase is configured.
type NoopEncryptor struct{}

func (NoopEncryptor) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (NoopEncryptor) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
