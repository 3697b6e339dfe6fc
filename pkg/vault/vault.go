// Package vault manages the lifecycle of an encrypted deskvault vault.
//
// A Session owns the only decrypted working copy of the document. It moves
// between four states:
//
//	Locked --Create--> Creating --> Unlocked
//	Locked --Unlock--> Unlocked | Failed
//	Unlocked --Lock--> Locked
//	Failed  --Reset--> Locked
//
// Every mutation of an unlocked session re-encrypts the whole document and
// overwrites the stored blob before it returns. Operations are serialized by
// a single mutex.
package vault

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forest6511/deskvault/pkg/crypto"
	"github.com/forest6511/deskvault/pkg/document"
	"github.com/forest6511/deskvault/pkg/seed"
	"github.com/forest6511/deskvault/pkg/store"
)

// MaxPasswordLength bounds the password accepted by Create and Unlock.
const MaxPasswordLength = 1024

// State is the lifecycle state of a Session.
type State int

const (
	StateLocked State = iota
	StateCreating
	StateUnlocked
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateCreating:
		return "creating"
	case StateUnlocked:
		return "unlocked"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Document content is never logged.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSeed sets the source merged into the document on Create.
func WithSeed(src seed.Source) Option {
	return func(s *Session) { s.seed = src }
}

// WithNow sets the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator sets the function used for new task, note and activity
// identifiers.
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// Session is one logical vault session over a Store.
type Session struct {
	store *store.Store
	seed  seed.Source

	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex         // Serializes every operation, persistence included
	state    State              // Current lifecycle state
	key      []byte             // Derived key (held in memory when unlocked)
	doc      *document.Document // Working copy (nil unless unlocked)
	throttle throttle
}

// New returns a locked Session over st.
func New(st *store.Store, opts ...Option) *Session {
	s := &Session{
		store:  st,
		seed:   seed.Empty{},
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.throttle.now = s.now
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Exists reports whether the store already holds a vault, which decides
// between the create and unlock paths.
func (s *Session) Exists(ctx context.Context) (bool, error) {
	ok, err := s.store.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return ok, nil
}

// Create initializes a new vault:
// 1. Check the confirmation matches and the store is empty
// 2. Generate salt and derive the key
// 3. Build the initial document, merging seed data
// 4. Encode and encrypt the document
// 5. Write metadata, then blob
//
// A mismatch or an abandoned attempt (canceled ctx) leaves the session
// Locked and writes nothing.
func (s *Session) Create(ctx context.Context, password, confirm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(password, confirm) != 1 {
		return ErrPasswordMismatch
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	exists, err := s.store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if exists {
		return ErrVaultExists
	}

	s.state = StateCreating
	success := false
	defer func() {
		if !success {
			s.state = StateLocked
		}
	}()

	// 1. Generate salt and derive key
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return err
	}
	key := crypto.DeriveKey(password, salt)

	// 2. Build initial document
	now := s.clock()
	doc := document.New(now)
	nTasks, nNotes := s.mergeSeed(ctx, doc, now)
	text := "Vault created"
	if nTasks > 0 || nNotes > 0 {
		text = fmt.Sprintf("Vault created with %d seed tasks and %d seed notes", nTasks, nNotes)
	}
	doc.AppendActivity(s.entry(now, text))

	// 3. Encode and encrypt
	blob, err := seal(key, doc)
	if err != nil {
		crypto.SecureWipe(key)
		return err
	}

	// Nothing has been written yet; this is the last point to abandon.
	if err := ctx.Err(); err != nil {
		crypto.SecureWipe(key)
		return err
	}

	// 4. Persist metadata then blob. A blob write failure leaves metadata
	// behind, which Exists ignores, so Create can be retried.
	if err := s.store.WriteMetadata(ctx, &store.Metadata{Version: store.MetadataVersion, Salt: salt}); err != nil {
		crypto.SecureWipe(key)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := s.store.WriteBlob(ctx, blob); err != nil {
		crypto.SecureWipe(key)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.key = key
	s.doc = doc
	s.state = StateUnlocked
	success = true
	s.logger.Info("vault created", "seed_tasks", nTasks, "seed_notes", nNotes)
	return nil
}

// Unlock opens an existing vault:
// 1. Check cooldown status
// 2. Read metadata and blob
// 3. Derive key from password and stored salt
// 4. Decrypt and decode the document
//
// Any failure in steps 2-4 other than a storage I/O error moves the session
// to Failed and returns ErrUnlockFailed. The key is always derived before
// failing so every failure costs the same. Unlock never writes to the store.
func (s *Session) Unlock(ctx context.Context, password []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(); err != nil {
		return err
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	if remaining := s.throttle.remaining(); remaining > 0 {
		return fmt.Errorf("%w: please wait %v", ErrCooldownActive, remaining.Round(time.Second))
	}

	meta, metaOK, err := s.store.ReadMetadata(ctx)
	corrupted := errors.Is(err, store.ErrCorrupted)
	if err != nil && !corrupted {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	blob, blobOK, err := s.store.ReadBlob(ctx)
	if errors.Is(err, store.ErrCorrupted) {
		corrupted = true
	} else if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !metaOK && !blobOK && !corrupted {
		return ErrVaultNotFound
	}

	salt := make([]byte, store.SaltLength)
	if metaOK {
		salt = meta.Salt
	}
	key := crypto.DeriveKey(password, salt)

	// Abandoned attempts are not failures.
	if err := ctx.Err(); err != nil {
		crypto.SecureWipe(key)
		return err
	}

	if corrupted || !metaOK || !blobOK {
		return s.failUnlock(key)
	}
	plaintext, err := crypto.Decrypt(key, blob.Ciphertext, blob.Nonce)
	if err != nil {
		return s.failUnlock(key)
	}
	doc, err := document.Decode(plaintext)
	crypto.SecureWipe(plaintext)
	if err != nil {
		return s.failUnlock(key)
	}

	s.throttle.reset()
	s.key = key
	s.doc = doc
	s.state = StateUnlocked
	s.logger.Info("vault unlocked", "tasks", len(doc.Tasks), "notes", len(doc.Notes))
	return nil
}

func (s *Session) failUnlock(key []byte) error {
	crypto.SecureWipe(key)
	s.state = StateFailed
	cooldown := s.throttle.recordFailure()
	s.logger.Warn("vault unlock failed", "failed_attempts", s.throttle.state.FailedAttempts, "cooldown", cooldown)
	return ErrUnlockFailed
}

// Lock wipes the key and drops the working copy. Locking a locked session
// is a no-op; a failed session stays failed until Reset.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		crypto.SecureWipe(s.key)
		s.key = nil
	}
	s.doc = nil
	if s.state == StateUnlocked {
		s.state = StateLocked
		s.logger.Info("vault locked")
	}
}

// Reset returns a failed session to Locked so unlock can be retried.
// The failed-attempt counter is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed {
		s.state = StateLocked
	}
}

// LockState returns the failed-attempt bookkeeping for display purposes.
func (s *Session) LockState() LockState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.throttle.state
}

// RemainingCooldown returns how long unlock attempts are still refused.
func (s *Session) RemainingCooldown() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.throttle.remaining()
}

// Document returns a deep copy of the working document.
func (s *Session) Document() (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	return s.doc.Clone(), nil
}

// Fingerprint returns a short digest of the stored blob, or "" when there
// is none.
func (s *Session) Fingerprint(ctx context.Context) (string, error) {
	blob, ok, err := s.store.ReadBlob(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		return "", nil
	}
	return store.Fingerprint(blob), nil
}

func (s *Session) requireLocked() error {
	switch s.state {
	case StateUnlocked:
		return ErrAlreadyUnlocked
	case StateFailed:
		return ErrFailed
	}
	return nil
}

func (s *Session) requireUnlocked() error {
	switch s.state {
	case StateUnlocked:
		return nil
	case StateFailed:
		return ErrFailed
	}
	return ErrLocked
}

func (s *Session) clock() time.Time {
	return s.now().UTC().Round(0)
}

func (s *Session) entry(now time.Time, text string) document.ActivityEntry {
	return document.ActivityEntry{ID: s.newID(), Time: now, Text: text}
}

func checkPassword(password []byte) error {
	if len(bytes.TrimSpace(password)) == 0 {
		return ErrEmptyPassword
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// seal encodes and encrypts doc under key.
func seal(key []byte, doc *document.Document) (*store.Blob, error) {
	plaintext, err := document.Encode(doc)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureWipe(plaintext)

	ciphertext, nonce, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}
	return &store.Blob{Nonce: nonce, Ciphertext: ciphertext}, nil
}
