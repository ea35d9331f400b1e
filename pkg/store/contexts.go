package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aleksaelezovic/tristore/internal/encoding"
	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultContextCacheSize bounds the per-store context cache
const DefaultContextCacheSize = 1024

// ContextRef is the persistent row for a named graph
type ContextRef struct {
	ID         uuid.UUID
	Identifier rdf.Term
}

// contextCache maps encoded context identifiers to their rows.
// It belongs to one Store and is not safe for concurrent use.
type contextCache struct {
	refs *lru.Cache[encoding.EncodedTerm, ContextRef]
}

func newContextCache(size int) (*contextCache, error) {
	if size <= 0 {
		size = DefaultContextCacheSize
	}
	refs, err := lru.New[encoding.EncodedTerm, ContextRef](size)
	if err != nil {
		return nil, fmt.Errorf("create context cache: %w", err)
	}
	return &contextCache{refs: refs}, nil
}

func (c *contextCache) get(key encoding.EncodedTerm) (ContextRef, bool) {
	return c.refs.Get(key)
}

func (c *contextCache) add(key encoding.EncodedTerm, ref ContextRef) {
	c.refs.Add(key, ref)
}

func (c *contextCache) remove(key encoding.EncodedTerm) {
	c.refs.Remove(key)
}

func (c *contextCache) purge() {
	c.refs.Purge()
}

// contextIdentifier normalises a context argument: nil becomes the default
// context, and only IRIs and blank nodes may name a context.
func contextIdentifier(graph rdf.Term) (rdf.Term, error) {
	switch graph.(type) {
	case nil:
		return rdf.DefaultGraph(), nil
	case *rdf.NamedNode, *rdf.BlankNode:
		return graph, nil
	default:
		return nil, &rdf.TermError{Position: rdf.PositionContext, Term: graph, Reason: "must be an IRI or blank node"}
	}
}

// resolveContext finds the row for a context, creating it when create is set.
// found is false when the context does not exist and create is not set.
func (s *session) resolveContext(graph rdf.Term, create bool) (ref ContextRef, found bool, err error) {
	identifier, err := contextIdentifier(graph)
	if err != nil {
		return ContextRef{}, false, err
	}

	encoded, col, err := encoding.EncodeTerm(identifier)
	if err != nil {
		return ContextRef{}, false, err
	}

	// another instance may have dropped or recreated the context
	if ref, ok := s.store.contexts.get(encoded); ok {
		_, err := s.txn.Get(TableContextIDs, s.store.key.with(ref.ID[:]))
		switch {
		case err == nil:
			return ref, true, nil
		case !errors.Is(err, ErrNotFound):
			return ContextRef{}, false, fmt.Errorf("lookup context %s: %w", identifier, err)
		}
		s.store.contexts.remove(encoded)
	}

	value, err := s.txn.Get(TableContexts, s.store.key.with(encoded[:]))
	switch {
	case err == nil:
		ref = ContextRef{Identifier: identifier}
		copy(ref.ID[:], value)
		s.cacheAfterCommit(encoded, ref)
		return ref, true, nil
	case !errors.Is(err, ErrNotFound):
		return ContextRef{}, false, fmt.Errorf("lookup context %s: %w", identifier, err)
	case !create:
		return ContextRef{}, false, nil
	}

	ref = ContextRef{ID: uuid.New(), Identifier: identifier}
	if err := putTerm(s.txn, encoded, col); err != nil {
		return ContextRef{}, false, err
	}
	if err := s.txn.Set(TableContexts, s.store.key.with(encoded[:]), ref.ID[:]); err != nil {
		return ContextRef{}, false, err
	}
	if err := s.txn.Set(TableContextIDs, s.store.key.with(ref.ID[:]), encoded[:]); err != nil {
		return ContextRef{}, false, err
	}

	s.store.logger.Debug("created context",
		slog.String("context", identifier.String()),
		slog.String("id", ref.ID.String()))
	s.cacheAfterCommit(encoded, ref)
	return ref, true, nil
}

// contextByID loads the identifier of a context row
func (s *session) contextByID(id uuid.UUID) (rdf.Term, error) {
	value, err := s.txn.Get(TableContextIDs, s.store.key.with(id[:]))
	if err != nil {
		return nil, fmt.Errorf("lookup context %s: %w", id, err)
	}
	var encoded encoding.EncodedTerm
	if len(value) != encoding.EncodedTermSize {
		return nil, fmt.Errorf("context %s: %w", id, encoding.ErrMalformedKey)
	}
	copy(encoded[:], value)
	return getTerm(s.txn, encoded)
}

// clearContext detaches up to limit statements from a context and deletes
// the ones left without any membership. It returns how many it detached.
func (s *session) clearContext(ref ContextRef, limit int) (int, error) {
	var matches []matchedStatement
	for _, coll := range allCollections {
		stmts, err := s.contextStatements(coll, ref.ID, limit-len(matches))
		if err != nil {
			return 0, err
		}
		for _, st := range stmts {
			matches = append(matches, matchedStatement{coll: coll, key: st})
		}
		if len(matches) >= limit {
			break
		}
	}

	removals, err := s.prepareRemovals(matches)
	if err != nil {
		return 0, err
	}
	return len(matches), s.applyRemovals(removals, &ref.ID)
}

// dropContext deletes the rows of an emptied context
func (s *session) dropContext(ref ContextRef) error {
	encoded := encoding.MustEncodeTerm(ref.Identifier)
	if err := s.txn.Delete(TableContexts, s.store.key.with(encoded[:])); err != nil {
		return err
	}
	if err := s.txn.Delete(TableContextIDs, s.store.key.with(ref.ID[:])); err != nil {
		return err
	}
	s.uncacheAfterCommit(encoded)
	return nil
}

// contextStatements collects up to limit statements that are members of a context
func (s *session) contextStatements(coll *collection, id uuid.UUID, limit int) ([]statementKey, error) {
	prefix := s.store.key.with(id[:])
	it, err := s.txn.Scan(coll.membersCSPO, prefix)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var stmts []statementKey
	for len(stmts) < limit && it.Next() {
		parts, err := encoding.SplitKey(it.Key()[len(prefix):], 3)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, statementKey{parts[0], parts[1], parts[2]})
	}
	return stmts, nil
}

// ContextIterator iterates over context identifiers
type ContextIterator struct {
	contexts []rdf.Term
	pos      int
}

func (ci *ContextIterator) Next() bool {
	if ci.pos >= len(ci.contexts) {
		return false
	}
	ci.pos++
	return true
}

// Context returns the current context identifier
func (ci *ContextIterator) Context() rdf.Term {
	if ci.pos == 0 || ci.pos > len(ci.contexts) {
		return nil
	}
	return ci.contexts[ci.pos-1]
}

func (ci *ContextIterator) Close() error {
	ci.contexts = nil
	return nil
}

// Collect drains the iterator
func (ci *ContextIterator) Collect() []rdf.Term {
	var contexts []rdf.Term
	for ci.Next() {
		contexts = append(contexts, ci.Context())
	}
	return contexts
}
