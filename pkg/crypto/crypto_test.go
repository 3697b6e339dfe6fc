package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("failed to read random bytes: %v", err)
	}
	return b
}

func TestDeriveKey(t *testing.T) {
	salt := randomBytes(t, SaltLength)

	key := DeriveKey([]byte("hunters2"), salt)
	if len(key) != KeyLength {
		t.Fatalf("DeriveKey() key length = %d, want %d", len(key), KeyLength)
	}

	if again := DeriveKey([]byte("hunters2"), salt); !bytes.Equal(key, again) {
		t.Error("DeriveKey() is not deterministic for identical inputs")
	}

	if other := DeriveKey([]byte("hunters3"), salt); bytes.Equal(key, other) {
		t.Error("DeriveKey() produced the same key for different passwords")
	}

	if other := DeriveKey([]byte("hunters2"), randomBytes(t, SaltLength)); bytes.Equal(key, other) {
		t.Error("DeriveKey() produced the same key for different salts")
	}
}

func TestDeriveKeyEmptyPassword(t *testing.T) {
	key := DeriveKey(nil, randomBytes(t, SaltLength))
	if len(key) != KeyLength {
		t.Errorf("DeriveKey(nil) key length = %d, want %d", len(key), KeyLength)
	}
}

func TestDeriveKeyNormalizesUnicode(t *testing.T) {
	salt := randomBytes(t, SaltLength)

	// "é" precomposed (U+00E9) versus "e" + combining acute (U+0301).
	composed := DeriveKey([]byte("caf\u00e9"), salt)
	decomposed := DeriveKey([]byte("cafe\u0301"), salt)
	if !bytes.Equal(composed, decomposed) {
		t.Error("DeriveKey() should treat canonically equivalent passwords as equal")
	}
}

func TestDeriveKeyDoesNotModifyPassword(t *testing.T) {
	password := []byte("correct horse battery staple")
	orig := append([]byte(nil), password...)
	DeriveKey(password, randomBytes(t, SaltLength))
	if !bytes.Equal(password, orig) {
		t.Error("DeriveKey() modified the caller's password buffer")
	}
}

func TestGenerateSalt(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	b, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	if len(a) != SaltLength {
		t.Errorf("GenerateSalt() length = %d, want %d", len(a), SaltLength)
	}
	if bytes.Equal(a, b) {
		t.Error("GenerateSalt() returned the same salt twice")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := randomBytes(t, KeyLength)

	cases := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte("x")},
		{"document", []byte(`{"meta":{"version":1},"tasks":[]}`)},
		{"large", randomBytes(t, 256*1024)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, nonce, err := Encrypt(key, tc.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(nonce) != NonceLength {
				t.Errorf("Encrypt() nonce length = %d, want %d", len(nonce), NonceLength)
			}
			if len(ciphertext) != len(tc.plaintext)+TagLength {
				t.Errorf("Encrypt() ciphertext length = %d, want %d", len(ciphertext), len(tc.plaintext)+TagLength)
			}

			got, err := Decrypt(key, ciphertext, nonce)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(got, tc.plaintext) {
				t.Error("Decrypt() did not return the original plaintext")
			}
		})
	}
}

func TestEncryptNonceUniqueness(t *testing.T) {
	key := randomBytes(t, KeyLength)
	plaintext := []byte("same plaintext every time")

	const n = 10_000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		_, nonce, err := Encrypt(key, plaintext)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if _, dup := seen[string(nonce)]; dup {
			t.Fatalf("Encrypt() repeated a nonce after %d calls", i)
		}
		seen[string(nonce)] = struct{}{}
	}
}

func TestDecryptWrongKey(t *testing.T) {
	ciphertext, nonce, err := Encrypt(randomBytes(t, KeyLength), []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := Decrypt(randomBytes(t, KeyLength), ciphertext, nonce); err != ErrDecryptionFailed {
		t.Errorf("Decrypt() with wrong key error = %v, want %v", err, ErrDecryptionFailed)
	}
}

// Any single flipped bit in the nonce, ciphertext body or tag must be rejected.
func TestDecryptDetectsBitFlips(t *testing.T) {
	key := randomBytes(t, KeyLength)
	ciphertext, nonce, err := Encrypt(key, []byte("tasks and notes"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	for i := 0; i < len(ciphertext)*8; i++ {
		tampered := append([]byte(nil), ciphertext...)
		tampered[i/8] ^= 1 << (i % 8)
		if _, err := Decrypt(key, tampered, nonce); err != ErrDecryptionFailed {
			t.Fatalf("ciphertext bit %d: Decrypt() error = %v, want %v", i, err, ErrDecryptionFailed)
		}
	}

	for i := 0; i < len(nonce)*8; i++ {
		tampered := append([]byte(nil), nonce...)
		tampered[i/8] ^= 1 << (i % 8)
		if _, err := Decrypt(key, ciphertext, tampered); err != ErrDecryptionFailed {
			t.Fatalf("nonce bit %d: Decrypt() error = %v, want %v", i, err, ErrDecryptionFailed)
		}
	}
}

func TestInvalidInputs(t *testing.T) {
	goodKey := make([]byte, KeyLength)
	goodNonce := make([]byte, NonceLength)

	tests := []struct {
		name       string
		key        []byte
		nonce      []byte
		ciphertext []byte
		wantErr    error
	}{
		{"short key", make([]byte, 16), goodNonce, make([]byte, 32), ErrInvalidKeyLength},
		{"long key", make([]byte, 48), goodNonce, make([]byte, 32), ErrInvalidKeyLength},
		{"empty key", nil, goodNonce, make([]byte, 32), ErrInvalidKeyLength},
		{"short nonce", goodKey, make([]byte, 8), make([]byte, 32), ErrInvalidNonceLength},
		{"long nonce", goodKey, make([]byte, 16), make([]byte, 32), ErrInvalidNonceLength},
		{"truncated ciphertext", goodKey, goodNonce, make([]byte, TagLength-1), ErrCiphertextTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decrypt(tt.key, tt.ciphertext, tt.nonce); err != tt.wantErr {
				t.Errorf("Decrypt() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, _, err := Encrypt(make([]byte, 24), []byte("x")); err != ErrInvalidKeyLength {
		t.Errorf("Encrypt() with 24-byte key error = %v, want %v", err, ErrInvalidKeyLength)
	}
}

func TestSecureWipe(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	SecureWipe(data)
	for i, b := range data {
		if b != 0 {
			t.Errorf("SecureWipe() byte[%d] = %d, want 0", i, b)
		}
	}

	// nil and empty slices must not panic
	SecureWipe(nil)
	SecureWipe([]byte{})
}

func TestParameters(t *testing.T) {
	if PBKDF2Iterations < 200_000 {
		t.Errorf("PBKDF2Iterations = %d, want >= 200000", PBKDF2Iterations)
	}
	if SaltLength != 16 {
		t.Errorf("SaltLength = %d, want 16", SaltLength)
	}
	if NonceLength != 12 {
		t.Errorf("NonceLength = %d, want 12", NonceLength)
	}
	if KeyLength != 32 {
		t.Errorf("KeyLength = %d, want 32", KeyLength)
	}
}
