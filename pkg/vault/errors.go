package vault

import (
	"errors"

	"github.com/forest6511/deskvault/pkg/document"
)

// Errors
var (
	// ErrPasswordMismatch is returned by Create when the confirmation does
	// not match. The session stays Locked; re-prompt and retry.
	ErrPasswordMismatch = errors.New("vault: passwords do not match")

	// ErrUnlockFailed covers every reason an unlock can fail after the
	// store has been read: wrong password, tampered or corrupted records.
	// The cause is never attached.
	ErrUnlockFailed = errors.New("vault: unlock failed")

	// ErrMalformedDocument is returned when an imported document is not a
	// valid vault document. The current state is kept.
	ErrMalformedDocument = document.ErrMalformed

	ErrEmptyPassword   = errors.New("vault: password must not be empty")
	ErrVaultExists     = errors.New("vault: vault already exists")
	ErrVaultNotFound   = errors.New("vault: vault not found")
	ErrLocked          = errors.New("vault: vault is locked")
	ErrAlreadyUnlocked = errors.New("vault: vault is already unlocked")
	ErrFailed          = errors.New("vault: session failed, reset before retrying")
	ErrCooldownActive  = errors.New("vault: cooldown period active")
	ErrNotFound        = errors.New("vault: item not found")
	ErrInvalidInput    = errors.New("vault: invalid input")
	ErrPasswordTooLong = errors.New("vault: password too long")
	ErrStorage         = errors.New("vault: storage error")
)
