package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e, err := NewAESContentEncryptor("correct horse battery staple")
	require.NoError(t, err)

	plaintext := "我们去了植物园，piggy 很开心 owo"
	ciphertext, err := e.Encrypt(plaintext)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ciphertext, "enc:"))
	assert.NotContains(t, ciphertext, "植物园")

	got, err := e.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptSurvivesNewEncryptorInstance(t *testing.T) {
	first, err := NewAESContentEncryptor("passphrase")
	require.NoError(t, err)

	ciphertext, err := first.Encrypt("persisted record")
	require.NoError(t, err)

	// A fresh instance has a different working salt, but the record
	// carries its own.
	second, err := NewAESContentEncryptor("passphrase")
	require.NoError(t, err)

	got, err := second.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "persisted record", got)
}

func TestDecryptPlaintextPassthrough(t *testing.T) {
	e, err := NewAESContentEncryptor("passphrase")
	require.NoError(t, err)

	got, err := e.Decrypt("legacy plaintext row")
	require.NoError(t, err)
	assert.Equal(t, "legacy plaintext row", got)
}

func TestDecryptWrongPassphraseFails(t *testing.T) {
	e1, err := NewAESContentEncryptor("right")
	require.NoError(t, err)
	e2, err := NewAESContentEncryptor("wrong")
	require.NoError(t, err)

	ciphertext, err := e1.Encrypt("secret")
	require.NoError(t, err)

	_, err = e2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestDecryptCorruptCiphertext(t *testing.T) {
	e, err := NewAESContentEncryptor("passphrase")
	require.NoError(t, err)

	for _, bad := range []string{"enc:!!!not-base64", "enc:c2hvcnQ="} {
		_, err := e.Decrypt(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewAESContentEncryptorEmptyPassphrase(t *testing.T) {
	_, err := NewAESContentEncryptor("")
	assert.Error(t, err)
}

func TestEncryptEmptyContent(t *testing.T) {
	e, err := NewAESContentEncryptor("passphrase")
	require.NoError(t, err)

	ciphertext, err := e.Encrypt("")
	require.NoError(t, err)

	got, err := e.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestNoopEncryptor(t *testing.T) {
	e := NoopEncryptor{}
	c, err := e.Encrypt("as-is")
	require.NoError(t, err)
	assert.Equal(t, "as-is", c)

	p, err := e.Decrypt("as-is")
	require.NoError(t, err)
	assert.Equal(t, "as-is", p)
}
