package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

type backendFactory struct {
	name string
	open func(t *testing.T, dir string) (Backend, error)
}

var backends = []backendFactory{
	{"dir", func(t *testing.T, dir string) (Backend, error) { return OpenDir(dir) }},
	{"sqlite", func(t *testing.T, dir string) (Backend, error) {
		return OpenSQLite(filepath.Join(dir, SQLiteFileName))
	}},
	{"bolt", func(t *testing.T, dir string) (Backend, error) {
		return OpenBolt(filepath.Join(dir, BoltFileName))
	}},
	{"memory", func(t *testing.T, dir string) (Backend, error) { return NewMemory(), nil }},
}

func testBlob(fill byte) *Blob {
	return &Blob{
		Nonce:      bytes.Repeat([]byte{fill}, NonceLength),
		Ciphertext: bytes.Repeat([]byte{fill + 1}, 64),
	}
}

func testMetadata() *Metadata {
	return &Metadata{Version: MetadataVersion, Salt: bytes.Repeat([]byte{0xab}, SaltLength)}
}

func TestBackends(t *testing.T) {
	ctx := context.Background()

	for _, bf := range backends {
		t.Run(bf.name, func(t *testing.T) {
			backend, err := bf.open(t, t.TempDir())
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}
			s := New(backend)
			defer s.Close()

			// A fresh store has neither record, and that is not an error.
			if _, ok, err := s.ReadMetadata(ctx); ok || err != nil {
				t.Fatalf("ReadMetadata() on empty store = (ok=%v, err=%v), want (false, nil)", ok, err)
			}
			if _, ok, err := s.ReadBlob(ctx); ok || err != nil {
				t.Fatalf("ReadBlob() on empty store = (ok=%v, err=%v), want (false, nil)", ok, err)
			}
			if exists, err := s.Exists(ctx); exists || err != nil {
				t.Fatalf("Exists() on empty store = (%v, %v), want (false, nil)", exists, err)
			}

			if err := s.WriteMetadata(ctx, testMetadata()); err != nil {
				t.Fatalf("WriteMetadata() error = %v", err)
			}
			if exists, _ := s.Exists(ctx); exists {
				t.Error("Exists() should stay false until a blob is written")
			}

			if err := s.WriteBlob(ctx, testBlob(1)); err != nil {
				t.Fatalf("WriteBlob() error = %v", err)
			}
			if err := s.WriteBlob(ctx, testBlob(7)); err != nil {
				t.Fatalf("second WriteBlob() error = %v", err)
			}

			meta, ok, err := s.ReadMetadata(ctx)
			if err != nil || !ok {
				t.Fatalf("ReadMetadata() = (ok=%v, err=%v)", ok, err)
			}
			if !bytes.Equal(meta.Salt, testMetadata().Salt) || meta.Version != MetadataVersion {
				t.Errorf("ReadMetadata() = %+v, want %+v", meta, testMetadata())
			}

			blob, ok, err := s.ReadBlob(ctx)
			if err != nil || !ok {
				t.Fatalf("ReadBlob() = (ok=%v, err=%v)", ok, err)
			}
			want := testBlob(7)
			if !bytes.Equal(blob.Nonce, want.Nonce) || !bytes.Equal(blob.Ciphertext, want.Ciphertext) {
				t.Error("ReadBlob() did not return the last written blob")
			}
			if exists, _ := s.Exists(ctx); !exists {
				t.Error("Exists() = false after writing a blob")
			}
		})
	}
}

func TestBackendsPersistAcrossReopen(t *testing.T) {
	ctx := context.Background()

	for _, bf := range backends {
		if bf.name == "memory" {
			continue
		}
		t.Run(bf.name, func(t *testing.T) {
			dir := t.TempDir()

			backend, err := bf.open(t, dir)
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}
			if err := New(backend).WriteBlob(ctx, testBlob(3)); err != nil {
				t.Fatalf("WriteBlob() error = %v", err)
			}
			if err := backend.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			backend, err = bf.open(t, dir)
			if err != nil {
				t.Fatalf("reopen failed: %v", err)
			}
			defer backend.Close()

			blob, ok, err := New(backend).ReadBlob(ctx)
			if err != nil || !ok {
				t.Fatalf("ReadBlob() after reopen = (ok=%v, err=%v)", ok, err)
			}
			if !bytes.Equal(blob.Ciphertext, testBlob(3).Ciphertext) {
				t.Error("blob changed across reopen")
			}
		})
	}
}

func TestBackendsExclusiveLock(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("advisory lock semantics differ on Windows")
	}

	for _, bf := range backends {
		if bf.name == "memory" {
			continue
		}
		t.Run(bf.name, func(t *testing.T) {
			dir := t.TempDir()

			first, err := bf.open(t, dir)
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}

			if second, err := bf.open(t, dir); !errors.Is(err, ErrLocked) {
				if second != nil {
					second.Close()
				}
				t.Fatalf("second open error = %v, want ErrLocked", err)
			}

			if err := first.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			third, err := bf.open(t, dir)
			if err != nil {
				t.Fatalf("open after close failed: %v", err)
			}
			third.Close()
		})
	}
}

func TestBackendsClosed(t *testing.T) {
	ctx := context.Background()

	for _, bf := range backends {
		t.Run(bf.name, func(t *testing.T) {
			backend, err := bf.open(t, t.TempDir())
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}
			if err := backend.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if err := backend.Close(); err != nil {
				t.Errorf("second Close() error = %v", err)
			}
			if err := backend.Put(ctx, RecordBlob, []byte("x")); !errors.Is(err, ErrClosed) {
				t.Errorf("Put() after Close error = %v, want ErrClosed", err)
			}
		})
	}
}

func TestDirFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions not available")
	}

	dir := filepath.Join(t.TempDir(), "vault")
	backend, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir() error = %v", err)
	}
	defer backend.Close()

	if err := New(backend).WriteBlob(context.Background(), testBlob(1)); err != nil {
		t.Fatalf("WriteBlob() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, BlobFileName))
	if err != nil {
		t.Fatalf("stat blob: %v", err)
	}
	if perm := info.Mode().Perm(); perm != FileMode {
		t.Errorf("blob permissions = %04o, want %04o", perm, FileMode)
	}
	info, err = os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != DirMode {
		t.Errorf("directory permissions = %04o, want %04o", perm, DirMode)
	}

	// No temp files are left behind after a successful write.
	leftovers, err := filepath.Glob(filepath.Join(dir, ".deskvault-tmp-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("leftover temp files: %v", leftovers)
	}
}

func TestCorruptedRecords(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		record string
		data   []byte
	}{
		{"metadata not json", RecordMetadata, []byte("{nope")},
		{"metadata wrong version", RecordMetadata, []byte(`{"version":9,"salt":"q6urq6urq6urq6urq6urqw=="}`)},
		{"metadata short salt", RecordMetadata, []byte(`{"version":1,"salt":"AAEC"}`)},
		{"blob too short", RecordBlob, []byte{blobFormat, 1, 2, 3}},
		{"blob unknown format", RecordBlob, append([]byte{0x7f}, make([]byte, NonceLength+TagLength)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemory()
			mem.Set(tt.record, tt.data)
			s := New(mem)

			var err error
			if tt.record == RecordMetadata {
				_, _, err = s.ReadMetadata(ctx)
			} else {
				_, _, err = s.ReadBlob(ctx)
			}
			if !errors.Is(err, ErrCorrupted) {
				t.Errorf("read error = %v, want ErrCorrupted", err)
			}
		})
	}
}

func TestWriteValidation(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()

	if err := s.WriteMetadata(ctx, &Metadata{Version: 1, Salt: []byte{1, 2}}); err == nil {
		t.Error("WriteMetadata() accepted a short salt")
	}
	if err := s.WriteBlob(ctx, &Blob{Nonce: []byte{1}, Ciphertext: make([]byte, 32)}); err == nil {
		t.Error("WriteBlob() accepted a short nonce")
	}
}

func TestBlobEnvelopeRoundTrip(t *testing.T) {
	in := testBlob(9)
	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if data[0] != blobFormat || len(data) != 1+NonceLength+len(in.Ciphertext) {
		t.Fatalf("unexpected envelope layout: % x", data[:4])
	}

	var out Blob
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if !bytes.Equal(out.Nonce, in.Nonce) || !bytes.Equal(out.Ciphertext, in.Ciphertext) {
		t.Error("envelope round trip changed the blob")
	}

	// The parsed blob must not alias the input buffer.
	data[1] ^= 0xff
	if out.Nonce[0] != in.Nonce[0] {
		t.Error("UnmarshalBinary() aliases its input")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(testBlob(1))
	b := Fingerprint(testBlob(2))
	if len(a) != 16 {
		t.Errorf("Fingerprint() length = %d, want 16 hex chars", len(a))
	}
	if a == b {
		t.Error("different blobs share a fingerprint")
	}
	if a != Fingerprint(testBlob(1)) {
		t.Error("Fingerprint() is not deterministic")
	}
	if Fingerprint(&Blob{}) != "" {
		t.Error("Fingerprint() of an invalid blob should be empty")
	}
}

func TestMemoryFailPut(t *testing.T) {
	mem := NewMemory()
	boom := errors.New("disk on fire")
	mem.FailPut = boom

	if err := New(mem).WriteBlob(context.Background(), testBlob(1)); !errors.Is(err, boom) {
		t.Errorf("WriteBlob() error = %v, want %v", err, boom)
	}
	if len(mem.Snapshot()) != 0 {
		t.Error("failed Put stored a record")
	}
}

func TestOpen(t *testing.T) {
	for _, driver := range Drivers {
		t.Run(driver, func(t *testing.T) {
			s, err := Open(driver, t.TempDir())
			if err != nil {
				t.Fatalf("Open(%q) error = %v", driver, err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}

	if _, err := Open("postgres", t.TempDir()); err == nil {
		t.Error("Open() accepted an unknown driver")
	}
}

func TestSQLiteMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), SQLiteFileName)

	for i := 0; i < 2; i++ {
		s, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite() #%d error = %v", i, err)
		}
		version, err := getSchemaVersion(s.db)
		if err != nil {
			t.Fatalf("getSchemaVersion() error = %v", err)
		}
		if version != CurrentSchemaVersion {
			t.Errorf("schema version = %d, want %d", version, CurrentSchemaVersion)
		}
		s.Close()
	}
}

func TestSQLiteRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), SQLiteFileName)
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", CurrentSchemaVersion+1); err != nil {
		t.Fatalf("bump schema version: %v", err)
	}
	s.Close()

	if _, err := OpenSQLite(path); !errors.Is(err, ErrCorrupted) {
		t.Errorf("OpenSQLite() on newer schema error = %v, want ErrCorrupted", err)
	}
}

func TestContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mem := NewMemory()
	if err := New(mem).WriteBlob(ctx, testBlob(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteBlob() with canceled context error = %v, want context.Canceled", err)
	}
	if len(mem.Snapshot()) != 0 {
		t.Error("canceled write stored a record")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	info, err := CheckDiskSpace(t.TempDir())
	if err != nil {
		t.Fatalf("CheckDiskSpace() error = %v", err)
	}
	if info.Total == 0 || info.UsedPct < 0 || info.UsedPct > 100 {
		t.Errorf("CheckDiskSpace() = %+v", info)
	}

	if _, err := CheckDiskSpace(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Errorf("CheckDiskSpace() on missing path error = %v, want fallback to parent", err)
	}
}
