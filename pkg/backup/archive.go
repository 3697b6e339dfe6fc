package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/forest6511/deskvault/pkg/document"
)

// FormatVersion is the export file format written by WriteArchive.
const FormatVersion = 1

// MaxArchiveSize bounds how much ReadArchive will read.
const MaxArchiveSize = 64 * 1024 * 1024

// Meta describes an export file.
type Meta struct {
	ExportedAt time.Time `json:"exportedAt"`
	Version    int       `json:"version"`
}

// Archive is the plaintext export file: {"meta": {...}, "vault": {...}}.
type Archive struct {
	Meta  Meta               `json:"meta"`
	Vault *document.Document `json:"vault"`
}

// NewArchive wraps doc for export at now.
func NewArchive(doc *document.Document, now time.Time) *Archive {
	return &Archive{
		Meta:  Meta{ExportedAt: now.UTC(), Version: FormatVersion},
		Vault: doc,
	}
}

// Marshal encodes the archive as indented JSON.
func (a *Archive) Marshal() ([]byte, error) {
	if a.Vault == nil {
		return nil, ErrMissingVault
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: failed to marshal archive: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteArchive writes the archive to w.
func WriteArchive(w io.Writer, a *Archive) error {
	data, err := a.Marshal()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("backup: failed to write archive: %w", err)
	}
	return nil
}

// rawArchive keeps the vault undecoded so a missing field can be detected
// and the document decoded with the vault's own validation.
type rawArchive struct {
	Meta  Meta            `json:"meta"`
	Vault json.RawMessage `json:"vault"`
}

// ReadArchive parses an export file. The vault document is validated the
// same way a stored document is; a malformed one returns an error wrapping
// document.ErrMalformed.
func ReadArchive(r io.Reader) (*Archive, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("backup: failed to read archive: %w", err)
	}
	if len(data) > MaxArchiveSize {
		return nil, fmt.Errorf("backup: archive exceeds %d bytes", MaxArchiveSize)
	}
	return ParseArchive(data)
}

// ParseArchive parses an export file held in memory.
func ParseArchive(data []byte) (*Archive, error) {
	var raw rawArchive
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrMalformed, err)
	}
	if raw.Meta.Version > FormatVersion {
		return nil, fmt.Errorf("%w: got %d, max supported %d",
			ErrUnsupportedVersion, raw.Meta.Version, FormatVersion)
	}
	if len(raw.Vault) == 0 || bytes.Equal(bytes.TrimSpace(raw.Vault), []byte("null")) {
		return nil, ErrMissingVault
	}

	doc, err := document.DecodeJSON(raw.Vault)
	if err != nil {
		return nil, err
	}
	return &Archive{Meta: raw.Meta, Vault: doc}, nil
}

// WriteFile atomically writes data to path with owner-only permissions.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".deskvault-export-*")
	if err != nil {
		return fmt.Errorf("backup: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("backup: failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("backup: failed to write export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("backup: failed to sync export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("backup: failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("backup: failed to rename export: %w", err)
	}
	return nil
}
