package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/google/uuid"
)

// DefaultIdentifier names the store that always exists
const DefaultIdentifier = "Default Store"

// DefaultMaxConflictRetries bounds how often a conflicting write is retried
const DefaultMaxConflictRetries = 8

// batchSize bounds the rows or statements written per transaction by bulk
// operations
const batchSize = 1000

var (
	// ErrNotOpen is returned by operations on a store that is not open
	ErrNotOpen = errors.New("store is not open")
	// ErrQuotedUnsupported is returned when adding to a quoted graph
	ErrQuotedUnsupported = errors.New("quoted graphs are not supported")
)

// OpenStatus is the outcome of Open
type OpenStatus int

const (
	// NoStore means the identified store does not exist and was not created
	NoStore OpenStatus = iota
	// ValidStore means the store is open
	ValidStore
)

func (s OpenStatus) String() string {
	if s == ValidStore {
		return "valid"
	}
	return "no store"
}

// Options configure a Store
type Options struct {
	// Identifier selects the store within the storage
	Identifier string
	// FixedNamespaces are seeded on open and cannot be rebound
	FixedNamespaces []Namespace
	// ContextCacheSize bounds the context cache
	ContextCacheSize int
	Logger           *slog.Logger
	// MaxConflictRetries bounds retries of conflicting writes
	MaxConflictRetries int
}

// Store is a context-aware triple store persisted in a Storage.
// A Store is not safe for concurrent use; give each goroutine its own.
type Store struct {
	storage    Storage
	identifier string
	key        storeKey
	fixed      []Namespace
	contexts   *contextCache
	logger     *slog.Logger
	maxRetries int
	open       bool
}

// New creates an unopened store over storage
func New(storage Storage, opts Options) (*Store, error) {
	if opts.Identifier == "" {
		opts.Identifier = DefaultIdentifier
	}
	if opts.FixedNamespaces == nil {
		opts.FixedNamespaces = DefaultNamespaces
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxConflictRetries <= 0 {
		opts.MaxConflictRetries = DefaultMaxConflictRetries
	}

	contexts, err := newContextCache(opts.ContextCacheSize)
	if err != nil {
		return nil, err
	}

	return &Store{
		storage:    storage,
		identifier: opts.Identifier,
		key:        newStoreKey(opts.Identifier),
		fixed:      opts.FixedNamespaces,
		contexts:   contexts,
		logger:     opts.Logger.With(slog.String("store", opts.Identifier)),
		maxRetries: opts.MaxConflictRetries,
	}, nil
}

// Identifier returns the store identifier
func (s *Store) Identifier() string {
	return s.identifier
}

// ContextAware reports that statements belong to contexts
func (s *Store) ContextAware() bool { return true }

// FormulaAware reports that quoted graphs are unsupported
func (s *Store) FormulaAware() bool { return false }

// TransactionAware reports that commit and rollback are not exposed
func (s *Store) TransactionAware() bool { return false }

func (s *Store) checkOpen() error {
	if !s.open {
		return ErrNotOpen
	}
	return nil
}

// Open opens the store, creating it when create is set. The default store
// is always created. Opening an open store is a no-op.
func (s *Store) Open(create bool) (OpenStatus, error) {
	if s.open {
		return ValidStore, nil
	}
	create = create || s.identifier == DefaultIdentifier

	status := NoStore
	err := s.write(func(sess *session) error {
		status = NoStore
		_, err := sess.txn.Get(TableStores, s.key[:])
		switch {
		case errors.Is(err, ErrNotFound):
			if !create {
				return nil
			}
			if err := sess.txn.Set(TableStores, s.key[:], []byte(s.identifier)); err != nil {
				return err
			}
			s.logger.Info("created store")
		case err != nil:
			return fmt.Errorf("lookup store: %w", err)
		}

		if err := sess.seedNamespaces(); err != nil {
			return err
		}
		if _, _, err := sess.resolveContext(nil, true); err != nil {
			return err
		}
		status = ValidStore
		return nil
	})
	if err != nil {
		return NoStore, err
	}

	s.open = status == ValidStore
	return status, nil
}

// Close closes the underlying storage
func (s *Store) Close() error {
	s.open = false
	s.contexts.purge()
	return s.storage.Close()
}

// destroyTables are cleared by Destroy. Namespace bindings are kept.
var destroyTables = []Table{
	TableURICSPO, TableURISPOC, TableURISPO, TableURIPOS, TableURIOSP,
	TableLitCSPO, TableLitSPOC, TableLitSPO, TableLitPOS, TableLitOSP,
	TableContexts, TableContextIDs,
}

// Destroy deletes every statement and context of the store and the store
// row itself. The store is left unopened.
func (s *Store) Destroy() error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	for _, table := range destroyTables {
		if err := s.clearTable(table); err != nil {
			return fmt.Errorf("destroy %s: %w", table, err)
		}
	}
	err := s.write(func(sess *session) error {
		return sess.txn.Delete(TableStores, s.key[:])
	})
	if err != nil {
		return err
	}

	s.contexts.purge()
	s.open = false
	s.logger.Info("destroyed store")
	return nil
}

// clearTable deletes the store's rows of a table in bounded batches
func (s *Store) clearTable(table Table) error {
	prefix := s.key.with()
	for {
		deleted := 0
		err := s.write(func(sess *session) error {
			deleted = 0
			it, err := sess.txn.Scan(table, prefix)
			if err != nil {
				return err
			}
			var keys [][]byte
			for len(keys) < batchSize && it.Next() {
				keys = append(keys, it.Key())
			}
			it.Close()

			for _, key := range keys {
				if err := sess.txn.Delete(table, key); err != nil {
					return err
				}
			}
			deleted = len(keys)
			return nil
		})
		if err != nil {
			return err
		}
		if deleted < batchSize {
			return nil
		}
	}
}

// Add stores a triple in a context. A nil context is the default context.
func (s *Store) Add(triple rdf.Triple, context rdf.Term, quoted bool) error {
	if quoted {
		return ErrQuotedUnsupported
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.write(func(sess *session) error {
		return sess.add(triple, context)
	})
}

// AddN stores quads. A nil graph is the default context. Every quad is
// validated before anything is written; the quads are then committed in
// batches, so a backend failure can leave earlier batches stored.
func (s *Store) AddN(quads []rdf.Quad) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, q := range quads {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, err := contextIdentifier(q.Graph); err != nil {
			return err
		}
	}

	for start := 0; start < len(quads); start += batchSize {
		batch := quads[start:min(start+batchSize, len(quads))]
		err := s.write(func(sess *session) error {
			for _, q := range batch {
				if err := sess.add(q.Triple, q.Graph); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the statements matching pattern. With a nil or default
// context they are deleted everywhere; with a named context only that
// context loses them. Unknown contexts are ignored. Large removals are
// committed in batches.
func (s *Store) Remove(pattern Pattern, context rdf.Term) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	txn, err := s.storage.Begin(false)
	if err != nil {
		return err
	}
	matches, from, ok, err := s.newSession(txn, false).removalMatches(pattern, context)
	txn.Rollback()
	if err != nil || !ok {
		return err
	}

	for start := 0; start < len(matches); start += batchSize {
		batch := matches[start:min(start+batchSize, len(matches))]
		err := s.write(func(sess *session) error {
			removals, err := sess.prepareRemovals(batch)
			if err != nil {
				return err
			}
			return sess.applyRemovals(removals, from)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveContext removes a context and its statements. The default context
// is emptied but kept.
func (s *Store) RemoveContext(context rdf.Term) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for done := false; !done; {
		err := s.write(func(sess *session) error {
			done = false
			ref, found, err := sess.resolveContext(context, false)
			if err != nil {
				return err
			}
			if !found {
				done = true
				return nil
			}
			n, err := sess.clearContext(ref, batchSize)
			if err != nil || n == batchSize {
				return err
			}
			done = true
			if rdf.IsDefaultGraph(ref.Identifier) {
				return nil
			}
			return sess.dropContext(ref)
		})
		if err != nil {
			return err
		}
	}
	s.logger.Debug("removed context", slog.Any("context", context))
	return nil
}

// Triples iterates over the triples matching pattern. A nil context matches
// statements in any context. The iterator must be closed.
func (s *Store) Triples(pattern Pattern, context rdf.Term) (*TripleIterator, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	var member *uuid.UUID
	if context != nil {
		ref, found, err := s.newSession(txn, false).resolveContext(context, false)
		if err != nil {
			txn.Rollback()
			return nil, err
		}
		if !found {
			txn.Rollback()
			return emptyTripleIterator(context), nil
		}
		member = &ref.ID
	}

	bp, plans, err := planPattern(s.key, pattern, member)
	if err != nil {
		txn.Rollback()
		return nil, err
	}
	return &TripleIterator{
		txn:     txn,
		sk:      s.key,
		pattern: bp,
		plans:   plans,
		context: context,
	}, nil
}

// Len counts the statements of a context, or the distinct statements of the
// whole store when context is nil.
func (s *Store) Len(context rdf.Term) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	txn, err := s.storage.Begin(false)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	if context == nil {
		total := 0
		for _, coll := range allCollections {
			n, err := countPrefix(txn, coll.spo, s.key.with())
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	}

	ref, found, err := s.newSession(txn, false).resolveContext(context, false)
	if err != nil || !found {
		return 0, err
	}
	total := 0
	for _, coll := range allCollections {
		n, err := countPrefix(txn, coll.membersCSPO, s.key.with(ref.ID[:]))
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func countPrefix(txn Transaction, table Table, prefix []byte) (int, error) {
	it, err := txn.Scan(table, prefix)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	n := 0
	for it.Next() {
		n++
	}
	return n, nil
}

// Contexts lists the known contexts, ordered by identifier. With a pattern,
// only contexts holding a matching statement are listed.
func (s *Store) Contexts(pattern *Pattern) (*ContextIterator, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()
	sess := s.newSession(txn, false)

	var ids []uuid.UUID
	if pattern == nil {
		prefix := s.key.with()
		it, err := txn.Scan(TableContextIDs, prefix)
		if err != nil {
			return nil, err
		}
		for it.Next() {
			var id uuid.UUID
			copy(id[:], it.Key()[len(prefix):])
			ids = append(ids, id)
		}
		it.Close()
	} else {
		bp, plans, err := planPattern(s.key, *pattern, nil)
		if err != nil {
			return nil, err
		}
		matches, err := collectMatches(txn, bp, s.key, plans)
		if err != nil {
			return nil, err
		}
		seen := make(map[uuid.UUID]bool)
		for _, m := range matches {
			memberOf, err := m.coll.memberships(txn, s.key, m.key)
			if err != nil {
				return nil, err
			}
			for _, id := range memberOf {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}

	contexts := make([]rdf.Term, 0, len(ids))
	for _, id := range ids {
		identifier, err := sess.contextByID(id)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, identifier)
	}
	sort.Slice(contexts, func(i, j int) bool {
		return contexts[i].String() < contexts[j].String()
	})
	return &ContextIterator{contexts: contexts}, nil
}
