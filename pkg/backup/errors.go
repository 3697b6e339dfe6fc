// Package backup reads and writes the vault export file, optionally sealed
// with age.
package backup

import "errors"

// Export/Import errors
var (
	// ErrMissingVault indicates the export file has no vault field.
	ErrMissingVault = errors.New("backup: export file has no vault")

	// ErrUnsupportedVersion indicates the export format version is newer
	// than this build understands.
	ErrUnsupportedVersion = errors.New("backup: unsupported export format version")

	// ErrDecryptionFailed indicates a sealed export could not be opened
	// with the given identities or passphrase.
	ErrDecryptionFailed = errors.New("backup: decryption failed: wrong key or passphrase, or corrupted data")

	// ErrNotSealed indicates Open was given a plain export file.
	ErrNotSealed = errors.New("backup: file is not sealed")

	// ErrNoRecipients indicates sealing was requested without recipients
	// or a passphrase.
	ErrNoRecipients = errors.New("backup: at least one recipient or a passphrase is required")

	// ErrEmptyPassword indicates an empty passphrase was provided.
	ErrEmptyPassword = errors.New("backup: passphrase cannot be empty")
)
