package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketVault = []byte("vault")

// Bolt is a Backend backed by a bbolt database. bbolt's own file lock
// keeps a second process out.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) the bbolt database at path.
func OpenBolt(path string, opts ...Option) (*Bolt, error) {
	o := buildOptions(opts)

	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return nil, fmt.Errorf("store: create vault directory: %w", err)
	}

	db, err := bbolt.Open(path, FileMode, &bbolt.Options{Timeout: 500 * time.Millisecond})
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVault)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}

	o.logger.Debug("opened bolt store", "path", path)
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.db == nil {
		return nil, ErrClosed
	}
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(bucketVault).Get([]byte(name))
		if val == nil {
			return ErrNotExist
		}
		data = append([]byte(nil), val...)
		return nil
	})
	return data, err
}

func (b *Bolt) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db == nil {
		return ErrClosed
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVault).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	return nil
}

func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
