package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryption_RoundTrip(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("0244000001")
	require.NoError(t, err)
	assert.NotEqual(t, "0244000001", ciphertext)

	plaintext, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "0244000001", plaintext)
}

func TestEncryption_NonDeterministicNonce(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	first, err := svc.Encrypt("same input")
	require.NoError(t, err)
	second, err := svc.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestEncryption_RejectsBadKey(t *testing.T) {
	_, err := NewAESEncryptionService("too-short")
	require.Error(t, err)

	_, err = NewAESEncryptionService("zz7e151628aed2a6abf7158809cf4f3c2b7e151628aed2a6abf7158809cf4f3c")
	require.Error(t, err)
}

func TestEncryption_RejectsTamperedCiphertext(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("payload")
	require.NoError(t, err)

	tampered := []byte(ciphertext)
	if tampered[len(tampered)-1] == 'a' {
		tampered[len(tampered)-1] = 'b'
	} else {
		tampered[len(tampered)-1] = 'a'
	}
	_, err = svc.Decrypt(string(tampered))
	require.Error(t, err)
}

func TestEncryption_RejectsShortCiphertext(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	_, err = svc.Decrypt("abcd")
	require.Error(t, err)
	_, err = svc.Decrypt("not hex at all")
	require.Error(t, err)
}
