package store

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
	// ErrConflict reports that a concurrent transaction wrote the same rows
	ErrConflict = errors.New("transaction conflict")
)

// Storage is the interface for the underlying transactional table store
type Storage interface {
	// Begin starts a new transaction
	Begin(writable bool) (Transaction, error)

	// Close closes the storage
	Close() error

	// Sync flushes writes to disk
	Sync() error
}

// Transaction represents a database transaction with snapshot isolation
type Transaction interface {
	// Get retrieves a value by key
	Get(table Table, key []byte) ([]byte, error)

	// Set stores a key-value pair
	Set(table Table, key, value []byte) error

	// Delete removes a key
	Delete(table Table, key []byte) error

	// Scan iterates in key order over all keys of a table starting with prefix.
	// A nil prefix scans the whole table.
	Scan(table Table, prefix []byte) (Iterator, error)

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}

// Iterator iterates over key-value pairs
type Iterator interface {
	// Next advances to the next item
	Next() bool

	// Key returns the current key (without the table prefix)
	Key() []byte

	// Value returns the current value
	Value() ([]byte, error)

	// Close closes the iterator
	Close() error
}

// Table represents a logical table in the storage
type Table byte

const (
	// Store rows: store key -> identifier
	TableStores Table = iota + 1

	// Term dictionary: encoded term -> column value
	TableTerms

	// Context rows: store + encoded identifier -> row id
	TableContexts
	// Context rows by id: store + row id -> encoded identifier
	TableContextIDs

	// Statements with an IRI or blank node object
	TableURISPO
	TableURIPOS
	TableURIOSP
	TableURICSPO
	TableURISPOC

	// Statements with a literal object
	TableLitSPO
	TableLitPOS
	TableLitOSP
	TableLitCSPO
	TableLitSPOC

	// Namespace bindings
	TableNSPrefix
	TableNSURI

	// Total number of tables
	TableCount
)

func (t Table) String() string {
	switch t {
	case TableStores:
		return "stores"
	case TableTerms:
		return "terms"
	case TableContexts:
		return "contexts"
	case TableContextIDs:
		return "context_ids"
	case TableURISPO:
		return "uri_spo"
	case TableURIPOS:
		return "uri_pos"
	case TableURIOSP:
		return "uri_osp"
	case TableURICSPO:
		return "uri_cspo"
	case TableURISPOC:
		return "uri_spoc"
	case TableLitSPO:
		return "lit_spo"
	case TableLitPOS:
		return "lit_pos"
	case TableLitOSP:
		return "lit_osp"
	case TableLitCSPO:
		return "lit_cspo"
	case TableLitSPOC:
		return "lit_spoc"
	case TableNSPrefix:
		return "ns_prefix"
	case TableNSURI:
		return "ns_uri"
	default:
		return "unknown"
	}
}

// TablePrefix returns a byte prefix for a table to namespace keys
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// PrefixKey adds a table prefix to a key
func PrefixKey(table Table, key []byte) []byte {
	prefix := TablePrefix(table)
	result := make([]byte, len(prefix)+len(key))
	copy(result, prefix)
	copy(result[len(prefix):], key)
	return result
}
