// Package store persists the two vault records: the plaintext metadata
// (format version and key derivation salt) and the encrypted blob.
//
// A Store sits on top of a Backend, which only needs to get and atomically
// put named byte values. Backends are provided for a plain directory, a
// SQLite database, a bbolt database and memory.
package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// Record names.
const (
	RecordMetadata = "meta"
	RecordBlob     = "blob"
)

// Format constants.
const (
	// MetadataVersion is the metadata format written by WriteMetadata.
	MetadataVersion = 1

	// SaltLength is the required salt size in bytes.
	SaltLength = 16

	// NonceLength is the GCM nonce size in bytes.
	NonceLength = 12

	// TagLength is the GCM tag size; a ciphertext is never shorter.
	TagLength = 16

	// blobFormat prefixes the envelope so its layout can change later.
	blobFormat byte = 0x01

	FileMode = 0600 // Owner read/write only
	DirMode  = 0700 // Owner read/write/execute only
)

// Errors
var (
	ErrNotExist         = errors.New("store: record does not exist")
	ErrCorrupted        = errors.New("store: record is corrupted")
	ErrLocked           = errors.New("store: vault is in use by another process")
	ErrClosed           = errors.New("store: store is closed")
	ErrInsufficientDisk = errors.New("store: insufficient disk space")
)

// Backend stores named byte values. Put must be atomic: after a crash a
// reader sees either the previous value or the new one, never a mix.
type Backend interface {
	// Get returns the value stored under name, or ErrNotExist.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put atomically replaces the value stored under name.
	Put(ctx context.Context, name string, data []byte) error
	// Close releases the backend and any lock it holds.
	Close() error
}

// Metadata is the unencrypted vault header. It is written once when the
// vault is created.
type Metadata struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt"`
}

// Blob is the encrypted document together with its nonce.
type Blob struct {
	Nonce      []byte
	Ciphertext []byte
}

// MarshalBinary encodes the blob as format byte || nonce || ciphertext.
func (b *Blob) MarshalBinary() ([]byte, error) {
	if len(b.Nonce) != NonceLength {
		return nil, fmt.Errorf("store: nonce must be %d bytes, got %d", NonceLength, len(b.Nonce))
	}
	out := make([]byte, 0, 1+len(b.Nonce)+len(b.Ciphertext))
	out = append(out, blobFormat)
	out = append(out, b.Nonce...)
	out = append(out, b.Ciphertext...)
	return out, nil
}

// UnmarshalBinary parses the output of MarshalBinary.
func (b *Blob) UnmarshalBinary(data []byte) error {
	if len(data) < 1+NonceLength+TagLength {
		return fmt.Errorf("%w: blob too short (%d bytes)", ErrCorrupted, len(data))
	}
	if data[0] != blobFormat {
		return fmt.Errorf("%w: unknown blob format %#x", ErrCorrupted, data[0])
	}
	b.Nonce = append([]byte(nil), data[1:1+NonceLength]...)
	b.Ciphertext = append([]byte(nil), data[1+NonceLength:]...)
	return nil
}

// Fingerprint returns a short BLAKE3 digest of the encoded blob. It changes
// on every write because every write uses a fresh nonce.
func Fingerprint(b *Blob) string {
	data, err := b.MarshalBinary()
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Store reads and writes vault records through a Backend.
type Store struct {
	backend Backend
}

// New returns a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// ReadMetadata returns the stored metadata. A missing record is reported
// as ok == false with a nil error.
func (s *Store) ReadMetadata(ctx context.Context) (*Metadata, bool, error) {
	data, err := s.backend.Get(ctx, RecordMetadata)
	if errors.Is(err, ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false, fmt.Errorf("%w: metadata: %v", ErrCorrupted, err)
	}
	if meta.Version != MetadataVersion {
		return nil, false, fmt.Errorf("%w: unsupported metadata version %d", ErrCorrupted, meta.Version)
	}
	if len(meta.Salt) != SaltLength {
		return nil, false, fmt.Errorf("%w: salt must be %d bytes", ErrCorrupted, SaltLength)
	}
	return &meta, true, nil
}

// WriteMetadata replaces the metadata record.
func (s *Store) WriteMetadata(ctx context.Context, meta *Metadata) error {
	if len(meta.Salt) != SaltLength {
		return fmt.Errorf("store: salt must be %d bytes, got %d", SaltLength, len(meta.Salt))
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("store: failed to marshal metadata: %w", err)
	}
	return s.backend.Put(ctx, RecordMetadata, data)
}

// ReadBlob returns the stored blob. A missing record is reported as
// ok == false with a nil error.
func (s *Store) ReadBlob(ctx context.Context) (*Blob, bool, error) {
	data, err := s.backend.Get(ctx, RecordBlob)
	if errors.Is(err, ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var blob Blob
	if err := blob.UnmarshalBinary(data); err != nil {
		return nil, false, err
	}
	return &blob, true, nil
}

// WriteBlob atomically replaces the blob record.
func (s *Store) WriteBlob(ctx context.Context, blob *Blob) error {
	data, err := blob.MarshalBinary()
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, RecordBlob, data)
}

// Exists reports whether a vault has been created, i.e. whether a blob is
// stored. Metadata without a blob is left over from an interrupted create
// and does not count.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, err := s.backend.Get(ctx, RecordBlob)
	if errors.Is(err, ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
