package store

import (
	"fmt"
	"path/filepath"
)

// Supported drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverFile, DriverSQLite, DriverBolt, DriverMemory}

// Database file names inside the vault directory.
const (
	SQLiteFileName = "vault.db"
	BoltFileName   = "vault.bolt"
)

// Open returns a Store for the vault directory dir using driver.
func Open(driver, dir string, opts ...Option) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch driver {
	case DriverFile, "":
		backend, err = OpenDir(dir, opts...)
	case DriverSQLite:
		backend, err = OpenSQLite(filepath.Join(dir, SQLiteFileName), opts...)
	case DriverBolt:
		backend, err = OpenBolt(filepath.Join(dir, BoltFileName), opts...)
	case DriverMemory:
		backend = NewMemory()
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return New(backend), nil
}
