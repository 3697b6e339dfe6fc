package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite is a Backend that keeps both records as rows of one table in a
// SQLite database file. A lock file next to the database keeps a second
// process out.
type SQLite struct {
	path string
	db   *sql.DB
	lock *fileLock
}

// OpenSQLite opens (creating if needed) the database at path and migrates
// its schema.
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	o := buildOptions(opts)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), DirMode); err != nil {
		return nil, fmt.Errorf("store: create vault directory: %w", err)
	}

	lock, err := acquireLock(abs + ".lock")
	if err != nil {
		return nil, err
	}

	dsn := "file:" + abs + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.release()
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		_ = lock.release()
		return nil, err
	}
	if err := os.Chmod(abs, FileMode); err != nil {
		o.logger.Warn("failed to restrict database permissions", "path", abs, "error", err)
	}

	return &SQLite{path: abs, db: db, lock: lock}, nil
}

func (s *SQLite) Get(ctx context.Context, name string) ([]byte, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM vault_records WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", name, err)
	}
	return data, nil
}

func (s *SQLite) Put(ctx context.Context, name string, data []byte) error {
	if s.db == nil {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vault_records (name, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, name, data)
	if err != nil {
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit %s: %w", name, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if lerr := s.lock.release(); err == nil {
		err = lerr
	}
	return err
}
