// Package crypto provides the cryptographic primitives of the deskvault vault.
//
// This package implements PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM
// authenticated encryption.
//
// # Security Features
//
//   - PBKDF2-HMAC-SHA256 key derivation (310,000 iterations, 16-byte salt)
//   - AES-256-GCM authenticated encryption without associated data
//   - A fresh random 96-bit nonce for every encryption
//   - Secure memory wiping for key material
//
// # Example Usage
//
//	salt, err := crypto.GenerateSalt()
//	key := crypto.DeriveKey([]byte("password"), salt)
//
//	ciphertext, nonce, err := crypto.Encrypt(key, plaintext)
//	plaintext, err := crypto.Decrypt(key, ciphertext, nonce)
//
//	crypto.SecureWipe(key)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

// PBKDF2 parameters.
const (
	// PBKDF2Iterations is the fixed iteration count. Raising it later would
	// require storing the count in the vault metadata.
	PBKDF2Iterations = 310_000

	// SaltLength is the length of the key derivation salt in bytes.
	SaltLength = 16

	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12

	// TagLength is the length of the GCM authentication tag in bytes.
	TagLength = 16
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("crypto: invalid nonce length, must be 12 bytes")

	// ErrDecryptionFailed indicates decryption or authentication tag verification failed.
	ErrDecryptionFailed = errors.New("crypto: decryption failed")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
)

// DeriveKey derives a 256-bit encryption key from a password using
// PBKDF2-HMAC-SHA256.
//
// The password is normalized to Unicode NFC first, so visually identical
// passwords typed through different input methods derive the same key.
// DeriveKey is deterministic and never fails: a wrong password simply yields
// a key that will not authenticate the stored blob.
func DeriveKey(password, salt []byte) []byte {
	normalized := norm.NFC.Append(nil, password...)
	defer SecureWipe(normalized)
	return pbkdf2.Key(normalized, salt, PBKDF2Iterations, KeyLength, sha256.New)
}

// GenerateSalt returns SaltLength bytes from crypto/rand.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt encrypts plaintext using AES-256-GCM authenticated encryption.
//
// A fresh 12-byte nonce is drawn from crypto/rand on every call. The
// authentication tag is appended to the ciphertext.
func Encrypt(key, plaintext []byte) (ciphertext []byte, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM authenticated encryption.
//
// Any tag mismatch, whether from a wrong key or a modified ciphertext or
// nonce, is reported as ErrDecryptionFailed with no further detail.
func Decrypt(key, ciphertext, nonce []byte) (plaintext []byte, err error) {
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive keeps b "in use" so the loop is not elided.
	runtime.KeepAlive(b)
}
