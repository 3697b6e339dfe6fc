package crypto_test

import (
	"crypto/rand"
	"testing"

	"github.com/forest6511/deskvault/pkg/crypto"
)

// BenchmarkDeriveKey measures one PBKDF2 derivation, the cost paid on every
// unlock attempt.
func BenchmarkDeriveKey(b *testing.B) {
	password := []byte("testpassword123!")
	salt, err := crypto.GenerateSalt()
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		crypto.DeriveKey(password, salt)
	}
}

// Every mutation re-encrypts the whole document, so throughput is measured
// at document sizes from a fresh vault up to a large one.

func BenchmarkEncrypt4KB(b *testing.B) { benchmarkEncrypt(b, 4*1024) }
func BenchmarkEncrypt64KB(b *testing.B) { benchmarkEncrypt(b, 64*1024) }
func BenchmarkEncrypt1MB(b *testing.B) { benchmarkEncrypt(b, 1024*1024) }
func BenchmarkDecrypt4KB(b *testing.B) { benchmarkDecrypt(b, 4*1024) }
func BenchmarkDecrypt64KB(b *testing.B) { benchmarkDecrypt(b, 64*1024) }
func BenchmarkDecrypt1MB(b *testing.B) { benchmarkDecrypt(b, 1024*1024) }

func benchmarkInputs(b *testing.B, size int) (key, data []byte) {
	b.Helper()
	key = make([]byte, crypto.KeyLength)
	data = make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		b.Fatal(err)
	}
	if _, err := rand.Read(data); err != nil {
		b.Fatal(err)
	}
	return key, data
}

func benchmarkEncrypt(b *testing.B, size int) {
	key, data := benchmarkInputs(b, size)

	b.ReportAllocs()
	b.SetBytes(int64(size))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := crypto.Encrypt(key, data); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkDecrypt(b *testing.B, size int) {
	key, data := benchmarkInputs(b, size)
	ciphertext, nonce, err := crypto.Encrypt(key, data)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(int64(size))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := crypto.Decrypt(key, ciphertext, nonce); err != nil {
			b.Fatal(err)
		}
	}
}
