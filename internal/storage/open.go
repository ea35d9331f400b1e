package storage

import (
	"fmt"

	"github.com/aleksaelezovic/tristore/pkg/store"
)

// Backend names accepted by Open
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the storage backend with the given name.
// For badger path is a directory, for sqlite a database file; memory ignores it.
func Open(backend, path string) (store.Storage, error) {
	switch backend {
	case BackendBadger, "":
		return NewBadgerStorage(path)
	case BackendSQLite:
		return NewSQLiteStorage(path)
	case BackendMemory:
		return NewInMemoryBadgerStorage()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
