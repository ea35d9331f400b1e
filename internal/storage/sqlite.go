package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleksaelezovic/tristore/pkg/store"
	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStorage implements Storage on top of a single relational table in SQLite.
// Write transactions begin IMMEDIATE so concurrent writers wait on the
// busy timeout instead of failing on lock upgrade.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if needed) the SQLite database at path
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Begin starts a new transaction
func (s *SQLiteStorage) Begin(writable bool) (store.Transaction, error) {
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{ReadOnly: !writable})
	if err != nil {
		return nil, mapSQLiteErr(fmt.Errorf("begin transaction: %w", err))
	}
	return &SQLiteTransaction{tx: tx, writable: writable}, nil
}

// Close closes the storage
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Sync checkpoints the write-ahead log into the main database file
func (s *SQLiteStorage) Sync() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
	return err
}

// SQLiteTransaction implements Transaction using a database/sql transaction
type SQLiteTransaction struct {
	tx       *sql.Tx
	writable bool
	done     bool
}

// Get retrieves a value by key
func (t *SQLiteTransaction) Get(table store.Table, key []byte) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRow(`SELECT v FROM rows WHERE tbl = ? AND k = ?`, int(table), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return value, nil
}

// Set stores a key-value pair
func (t *SQLiteTransaction) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.Exec(`
		INSERT INTO rows (tbl, k, v) VALUES (?, ?, ?)
		ON CONFLICT (tbl, k) DO UPDATE SET v = excluded.v
	`, int(table), key, value)
	return mapSQLiteErr(err)
}

// Delete removes a key
func (t *SQLiteTransaction) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	_, err := t.tx.Exec(`DELETE FROM rows WHERE tbl = ? AND k = ?`, int(table), key)
	return mapSQLiteErr(err)
}

// Scan loads every row of table whose key starts with prefix.
// Rows are materialised so the transaction may be written to while iterating.
func (t *SQLiteTransaction) Scan(table store.Table, prefix []byte) (store.Iterator, error) {
	var (
		rows *sql.Rows
		err  error
	)
	end := prefixEnd(prefix)
	switch {
	case len(prefix) == 0:
		rows, err = t.tx.Query(`SELECT k, v FROM rows WHERE tbl = ? ORDER BY k`, int(table))
	case end == nil:
		rows, err = t.tx.Query(`SELECT k, v FROM rows WHERE tbl = ? AND k >= ? ORDER BY k`, int(table), prefix)
	default:
		rows, err = t.tx.Query(`SELECT k, v FROM rows WHERE tbl = ? AND k >= ? AND k < ? ORDER BY k`, int(table), prefix, end)
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	it := &sliceIterator{pos: -1}
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		it.keys = append(it.keys, k)
		it.values = append(it.values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteErr(err)
	}
	return it, nil
}

// Commit commits the transaction
func (t *SQLiteTransaction) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return mapSQLiteErr(t.tx.Commit())
}

// Rollback rolls back the transaction. Rolling back a finished transaction is a no-op.
func (t *SQLiteTransaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// prefixEnd returns the smallest key greater than every key with the given prefix,
// or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sqlite3.BUSY) || errors.Is(err, sqlite3.LOCKED) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

// sliceIterator iterates over materialised rows
type sliceIterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

func (i *sliceIterator) Next() bool {
	if i.pos < len(i.keys) {
		i.pos++
	}
	return i.pos < len(i.keys)
}

func (i *sliceIterator) Key() []byte {
	if i.pos < 0 || i.pos >= len(i.keys) {
		return nil
	}
	return i.keys[i.pos]
}

func (i *sliceIterator) Value() ([]byte, error) {
	if i.pos < 0 || i.pos >= len(i.keys) {
		return nil, store.ErrNotFound
	}
	return i.values[i.pos], nil
}

func (i *sliceIterator) Close() error {
	i.keys, i.values = nil, nil
	return nil
}
