package backup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

const (
	ageHeader   = "age-encryption.org/v1\n"
	armorHeader = "-----BEGIN AGE ENCRYPTED FILE-----"

	// DefaultWorkFactor is the scrypt work factor (log2 N) for passphrase
	// sealing.
	DefaultWorkFactor = 18
)

// SealOptions selects how an export is sealed. Recipients and Passphrase
// are mutually exclusive.
type SealOptions struct {
	// Recipients are age X25519 public keys (age1...).
	Recipients []string
	// Passphrase seals with scrypt instead of public keys.
	Passphrase []byte
	// Armor writes PEM-style ASCII output.
	Armor bool
	// WorkFactor overrides DefaultWorkFactor for passphrase sealing.
	WorkFactor int
}

// OpenOptions supplies what is needed to open a sealed export.
type OpenOptions struct {
	// Identities is the content of an age identity file
	// (AGE-SECRET-KEY-1... lines).
	Identities string
	// Passphrase opens a passphrase-sealed export.
	Passphrase []byte
}

// IsSealed reports whether data looks like age output, binary or armored.
func IsSealed(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(data, []byte(ageHeader)) || bytes.HasPrefix(trimmed, []byte(armorHeader))
}

// Seal encrypts plaintext with age.
func Seal(plaintext []byte, opts SealOptions) ([]byte, error) {
	recipients, err := sealRecipients(opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	var armored io.WriteCloser
	if opts.Armor {
		armored = armor.NewWriter(&buf)
		out = armored
	}

	w, err := age.Encrypt(out, recipients...)
	if err != nil {
		return nil, fmt.Errorf("backup: creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("backup: writing plaintext to age encryptor: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("backup: finalizing age encryption: %w", err)
	}
	if armored != nil {
		if err := armored.Close(); err != nil {
			return nil, fmt.Errorf("backup: finalizing armor: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func sealRecipients(opts SealOptions) ([]age.Recipient, error) {
	if len(opts.Recipients) > 0 && opts.Passphrase != nil {
		return nil, errors.New("backup: recipients and passphrase are mutually exclusive")
	}

	if opts.Passphrase != nil {
		if len(opts.Passphrase) == 0 {
			return nil, ErrEmptyPassword
		}
		r, err := age.NewScryptRecipient(string(opts.Passphrase))
		if err != nil {
			return nil, fmt.Errorf("backup: %w", err)
		}
		factor := opts.WorkFactor
		if factor == 0 {
			factor = DefaultWorkFactor
		}
		r.SetWorkFactor(factor)
		return []age.Recipient{r}, nil
	}

	if len(opts.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	recipients := make([]age.Recipient, 0, len(opts.Recipients))
	for _, key := range opts.Recipients {
		r, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("backup: parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, r)
	}
	return recipients, nil
}

// Open decrypts a sealed export.
func Open(sealed []byte, opts OpenOptions) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	identities, err := openIdentities(opts)
	if err != nil {
		return nil, err
	}

	var src io.Reader = bytes.NewReader(sealed)
	if !bytes.HasPrefix(sealed, []byte(ageHeader)) {
		src = armor.NewReader(bytes.NewReader(bytes.TrimLeft(sealed, " \t\r\n")))
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := io.ReadAll(io.LimitReader(r, MaxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(plaintext) > MaxArchiveSize {
		return nil, fmt.Errorf("backup: archive exceeds %d bytes", MaxArchiveSize)
	}
	return plaintext, nil
}

func openIdentities(opts OpenOptions) ([]age.Identity, error) {
	var identities []age.Identity
	if opts.Passphrase != nil {
		if len(opts.Passphrase) == 0 {
			return nil, ErrEmptyPassword
		}
		id, err := age.NewScryptIdentity(string(opts.Passphrase))
		if err != nil {
			return nil, fmt.Errorf("backup: %w", err)
		}
		identities = append(identities, id)
	}
	if strings.TrimSpace(opts.Identities) != "" {
		ids, err := age.ParseIdentities(strings.NewReader(opts.Identities))
		if err != nil {
			return nil, fmt.Errorf("backup: parsing identities: %w", err)
		}
		identities = append(identities, ids...)
	}
	if len(identities) == 0 {
		return nil, errors.New("backup: an identity file or passphrase is required to open a sealed export")
	}
	return identities, nil
}

// Keypair is an age X25519 keypair in its string forms.
type Keypair struct {
	// PrivateKey is in AGE-SECRET-KEY-1... format and must never be logged.
	PrivateKey string
	// PublicKey is the corresponding age1... recipient.
	PublicKey string
}

// GenerateKeypair creates a new X25519 keypair for sealing exports.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("backup: generating age keypair: %w", err)
	}
	return &Keypair{
		PrivateKey: identity.String(),
		PublicKey:  identity.Recipient().String(),
	}, nil
}
