package store

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aleksaelezovic/tristore/internal/encoding"
	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/google/uuid"
)

// session is one storage transaction bound to a store.
// Context cache changes are held back until the transaction commits.
type session struct {
	store    *Store
	txn      Transaction
	writable bool
	cached   map[encoding.EncodedTerm]ContextRef
	uncached []encoding.EncodedTerm
}

func (s *Store) newSession(txn Transaction, writable bool) *session {
	return &session{store: s, txn: txn, writable: writable}
}

func (s *session) cacheAfterCommit(key encoding.EncodedTerm, ref ContextRef) {
	if !s.writable {
		// rows seen by a read transaction are already committed
		s.store.contexts.add(key, ref)
		return
	}
	if s.cached == nil {
		s.cached = make(map[encoding.EncodedTerm]ContextRef)
	}
	s.cached[key] = ref
}

func (s *session) uncacheAfterCommit(key encoding.EncodedTerm) {
	delete(s.cached, key)
	s.uncached = append(s.uncached, key)
}

func (s *session) commit() error {
	if err := s.txn.Commit(); err != nil {
		return err
	}
	for _, key := range s.uncached {
		s.store.contexts.remove(key)
	}
	for key, ref := range s.cached {
		s.store.contexts.add(key, ref)
	}
	return nil
}

// write runs fn in a write transaction, retrying it when the commit
// conflicts with a concurrent writer.
func (s *Store) write(fn func(*session) error) error {
	for attempt := 0; ; attempt++ {
		txn, err := s.storage.Begin(true)
		if err != nil {
			return err
		}
		sess := s.newSession(txn, true)

		err = fn(sess)
		if err == nil {
			err = sess.commit()
		}
		txn.Rollback()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= s.maxRetries {
			return err
		}
		s.logger.Debug("retrying conflicting transaction",
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}
}

// add stores a triple in a context
func (s *session) add(triple rdf.Triple, context rdf.Term) error {
	if err := triple.Validate(); err != nil {
		return err
	}
	ref, _, err := s.resolveContext(context, true)
	if err != nil {
		return err
	}

	var st statementKey
	for i, term := range [3]rdf.Term{triple.Subject, triple.Predicate, triple.Object} {
		encoded, col, err := encoding.EncodeTerm(term)
		if err != nil {
			return err
		}
		if err := putTerm(s.txn, encoded, col); err != nil {
			return err
		}
		st[i] = encoded
	}

	coll := collectionsFor(triple.Object)[0]
	if err := coll.insert(s.txn, s.store.key, st); err != nil {
		return fmt.Errorf("insert %s: %w", triple, err)
	}
	return coll.addMember(s.txn, s.store.key, st, ref.ID)
}

// remove deletes matching statements. The default context deletes statements
// outright; a named context drops its memberships and then any orphaned rows.
func (s *session) remove(pattern Pattern, context rdf.Term) error {
	matches, from, ok, err := s.removalMatches(pattern, context)
	if err != nil || !ok {
		return err
	}
	removals, err := s.prepareRemovals(matches)
	if err != nil {
		return err
	}
	return s.applyRemovals(removals, from)
}

// removalMatches finds the statements a remove touches. from is the context
// to detach them from, nil when they are deleted outright. ok is false when
// the context does not exist.
func (s *session) removalMatches(pattern Pattern, context rdf.Term) (matches []matchedStatement, from *uuid.UUID, ok bool, err error) {
	if !rdf.IsDefaultGraph(context) {
		ref, found, err := s.resolveContext(context, false)
		if err != nil || !found {
			return nil, nil, false, err
		}
		from = &ref.ID
	}

	bp, plans, err := planPattern(s.store.key, pattern, from)
	if err != nil {
		return nil, nil, false, err
	}
	matches, err = collectMatches(s.txn, bp, s.store.key, plans)
	if err != nil {
		return nil, nil, false, err
	}
	return matches, from, true, nil
}

// removal is a matched statement with the contexts holding it
type removal struct {
	coll    *collection
	key     statementKey
	members []uuid.UUID
}

// prepareRemovals reads the memberships of matched statements. Call it before
// the transaction writes anything so its scans see no pending writes.
func (s *session) prepareRemovals(matches []matchedStatement) ([]removal, error) {
	removals := make([]removal, 0, len(matches))
	for _, m := range matches {
		// reading the statement row makes a concurrent add of it conflict
		spo, _, _ := m.key.indexKeys()
		if _, err := s.txn.Get(m.coll.spo, s.store.key.with(spo)); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		members, err := m.coll.memberships(s.txn, s.store.key, m.key)
		if err != nil {
			return nil, err
		}
		removals = append(removals, removal{coll: m.coll, key: m.key, members: members})
	}
	return removals, nil
}

// applyRemovals deletes statements with all of their memberships. With from
// set only that membership goes, and statements left without one are deleted.
func (s *session) applyRemovals(removals []removal, from *uuid.UUID) error {
	for _, r := range removals {
		var err error
		if from == nil {
			err = s.purge(r)
		} else {
			err = s.detach(r, *from)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *session) purge(r removal) error {
	for _, id := range r.members {
		if err := r.coll.removeMember(s.txn, s.store.key, r.key, id); err != nil {
			return err
		}
	}
	return r.coll.delete(s.txn, s.store.key, r.key)
}

func (s *session) detach(r removal, id uuid.UUID) error {
	if !slices.Contains(r.members, id) {
		return nil
	}
	if err := r.coll.removeMember(s.txn, s.store.key, r.key, id); err != nil {
		return err
	}
	if len(r.members) > 1 {
		return nil
	}
	return r.coll.delete(s.txn, s.store.key, r.key)
}

// Txn groups adds and removes into one transaction
type Txn struct {
	sess *session
}

// Add stores a triple in a context. A nil context is the default context.
func (t *Txn) Add(triple rdf.Triple, context rdf.Term) error {
	return t.sess.add(triple, context)
}

// Remove deletes the statements matching pattern from a context
func (t *Txn) Remove(pattern Pattern, context rdf.Term) error {
	return t.sess.remove(pattern, context)
}

// Update runs fn in one write transaction. fn may run more than once when
// the transaction conflicts with a concurrent writer.
func (s *Store) Update(fn func(*Txn) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.write(func(sess *session) error {
		return fn(&Txn{sess: sess})
	})
}
