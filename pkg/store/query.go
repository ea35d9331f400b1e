package store

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/tristore/internal/encoding"
	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/google/uuid"
)

// Pattern is a triple pattern. A nil position matches any term.
type Pattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
}

// PatternOf returns the pattern matching exactly one triple
func PatternOf(t rdf.Triple) Pattern {
	return Pattern{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object}
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s %s %s", patternTerm(p.Subject), patternTerm(p.Predicate), patternTerm(p.Object))
}

func patternTerm(t rdf.Term) string {
	if t == nil {
		return "*"
	}
	return t.String()
}

// boundPattern is a pattern with its bound positions encoded
type boundPattern struct {
	terms [3]encoding.EncodedTerm
	bound [3]bool
}

func encodePattern(p Pattern) (boundPattern, error) {
	var bp boundPattern
	positions := [3]struct {
		term rdf.Term
		pos  rdf.Position
	}{
		{p.Subject, rdf.PositionSubject},
		{p.Predicate, rdf.PositionPredicate},
		{p.Object, rdf.PositionObject},
	}
	for i, position := range positions {
		if position.term == nil {
			continue
		}
		encoded, _, err := encoding.EncodeTerm(position.term)
		if err != nil {
			return boundPattern{}, &rdf.TermError{Position: position.pos, Term: position.term, Reason: err.Error()}
		}
		bp.terms[i] = encoded
		bp.bound[i] = true
	}
	return bp, nil
}

func (bp boundPattern) matches(st statementKey) bool {
	for i := range bp.terms {
		if bp.bound[i] && bp.terms[i] != st[i] {
			return false
		}
	}
	return true
}

// scanPlan describes how one collection is read for a pattern
type scanPlan struct {
	coll   *collection
	table  Table
	prefix []byte
	// order maps key positions back to subject, predicate and object
	order [3]int
	// member restricts results to statements in a context
	member *uuid.UUID
	// skip is the number of key bytes before the statement
	skip int
}

var (
	orderSPO = [3]int{0, 1, 2}
	orderPOS = [3]int{1, 2, 0}
	orderOSP = [3]int{2, 0, 1}
)

// planScan selects the index for one collection.
// A bound context with no position bound reads the context's membership range;
// otherwise the statement indexes are used and membership is checked per row.
func planScan(sk storeKey, coll *collection, bp boundPattern, ctx *uuid.UUID) scanPlan {
	sBound, pBound, oBound := bp.bound[0], bp.bound[1], bp.bound[2]

	if ctx != nil && !sBound && !pBound && !oBound {
		return scanPlan{
			coll:   coll,
			table:  coll.membersCSPO,
			prefix: sk.with(ctx[:]),
			order:  orderSPO,
			skip:   storeKeySize + contextIDSize,
		}
	}

	plan := scanPlan{coll: coll, member: ctx, skip: storeKeySize}
	var lead []encoding.EncodedTerm
	switch {
	case sBound && pBound:
		plan.table, plan.order = coll.spo, orderSPO
		lead = []encoding.EncodedTerm{bp.terms[0], bp.terms[1]}
		if oBound {
			lead = append(lead, bp.terms[2])
		}
	case pBound && oBound:
		plan.table, plan.order = coll.pos, orderPOS
		lead = []encoding.EncodedTerm{bp.terms[1], bp.terms[2]}
	case oBound && sBound:
		plan.table, plan.order = coll.osp, orderOSP
		lead = []encoding.EncodedTerm{bp.terms[2], bp.terms[0]}
	case sBound:
		plan.table, plan.order = coll.spo, orderSPO
		lead = []encoding.EncodedTerm{bp.terms[0]}
	case pBound:
		plan.table, plan.order = coll.pos, orderPOS
		lead = []encoding.EncodedTerm{bp.terms[1]}
	case oBound:
		plan.table, plan.order = coll.osp, orderOSP
		lead = []encoding.EncodedTerm{bp.terms[2]}
	default:
		plan.table, plan.order = coll.spo, orderSPO
	}
	plan.prefix = sk.with(encoding.EncodeKey(lead...))
	return plan
}

// statement decodes an index key into statement order
func (p scanPlan) statement(key []byte) (statementKey, error) {
	if len(key) < p.skip+statementKeySize {
		return statementKey{}, fmt.Errorf("%s key of %d bytes: %w", p.table, len(key), encoding.ErrMalformedKey)
	}
	parts, err := encoding.SplitKey(key[p.skip:p.skip+statementKeySize], 3)
	if err != nil {
		return statementKey{}, err
	}
	var st statementKey
	for i, pos := range p.order {
		st[pos] = parts[i]
	}
	return st, nil
}

// planPattern builds the scans for a pattern, resource collection first
func planPattern(sk storeKey, p Pattern, ctx *uuid.UUID) (boundPattern, []scanPlan, error) {
	bp, err := encodePattern(p)
	if err != nil {
		return boundPattern{}, nil, err
	}
	colls := collectionsFor(p.Object)
	plans := make([]scanPlan, 0, len(colls))
	for _, coll := range colls {
		plans = append(plans, planScan(sk, coll, bp, ctx))
	}
	return bp, plans, nil
}

// matchedStatement is a statement found by a scan
type matchedStatement struct {
	coll *collection
	key  statementKey
}

// collectMatches runs the plans to completion. Write paths use it so no
// iterator is open while rows are modified.
func collectMatches(txn Transaction, bp boundPattern, sk storeKey, plans []scanPlan) ([]matchedStatement, error) {
	var matches []matchedStatement
	for _, plan := range plans {
		it, err := txn.Scan(plan.table, plan.prefix)
		if err != nil {
			return nil, err
		}
		for it.Next() {
			st, err := plan.statement(it.Key())
			if err != nil {
				it.Close()
				return nil, err
			}
			if !bp.matches(st) {
				continue
			}
			matches = append(matches, matchedStatement{coll: plan.coll, key: st})
		}
		it.Close()
	}

	if len(plans) == 0 || plans[0].member == nil {
		return matches, nil
	}
	filtered := matches[:0]
	for _, m := range matches {
		ok, err := m.coll.isMember(txn, sk, m.key, *plans[0].member)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// TripleIterator iterates over the triples matching a pattern.
// It holds a read transaction until Close.
type TripleIterator struct {
	txn     Transaction
	sk      storeKey
	pattern boundPattern
	plans   []scanPlan
	context rdf.Term

	it         Iterator
	current    statementKey
	hasCurrent bool
	err        error
	closed     bool
}

// ErrNoCurrentTriple is returned by Triple when Next has not yielded a row
var ErrNoCurrentTriple = errors.New("iterator has no current triple")

func emptyTripleIterator(context rdf.Term) *TripleIterator {
	return &TripleIterator{context: context, closed: true}
}

// Next advances to the next matching triple
func (ti *TripleIterator) Next() bool {
	ti.hasCurrent = false
	if ti.closed || ti.err != nil {
		return false
	}
	for {
		if ti.it == nil {
			if len(ti.plans) == 0 {
				return false
			}
			it, err := ti.txn.Scan(ti.plans[0].table, ti.plans[0].prefix)
			if err != nil {
				ti.err = err
				return false
			}
			ti.it = it
		}

		if !ti.it.Next() {
			ti.it.Close()
			ti.it = nil
			ti.plans = ti.plans[1:]
			continue
		}

		plan := ti.plans[0]
		st, err := plan.statement(ti.it.Key())
		if err != nil {
			ti.err = err
			return false
		}
		if !ti.pattern.matches(st) {
			continue
		}
		if plan.member != nil {
			ok, err := plan.coll.isMember(ti.txn, ti.sk, st, *plan.member)
			if err != nil {
				ti.err = err
				return false
			}
			if !ok {
				continue
			}
		}
		ti.current = st
		ti.hasCurrent = true
		return true
	}
}

// Triple decodes the current triple
func (ti *TripleIterator) Triple() (rdf.Triple, error) {
	if ti.closed {
		return rdf.Triple{}, errors.New("iterator closed")
	}
	if !ti.hasCurrent {
		return rdf.Triple{}, ErrNoCurrentTriple
	}
	var terms [3]rdf.Term
	for i, encoded := range ti.current {
		term, err := getTerm(ti.txn, encoded)
		if err != nil {
			return rdf.Triple{}, fmt.Errorf("decode term %d: %w", i, err)
		}
		terms[i] = term
	}
	return rdf.NewTriple(terms[0], terms[1], terms[2]), nil
}

// Context returns the context the iterator was created with
func (ti *TripleIterator) Context() rdf.Term {
	return ti.context
}

// Err returns the first error hit while scanning
func (ti *TripleIterator) Err() error {
	return ti.err
}

func (ti *TripleIterator) Close() error {
	if ti.closed {
		return nil
	}
	ti.closed = true
	if ti.it != nil {
		ti.it.Close()
		ti.it = nil
	}
	return ti.txn.Rollback()
}

// Collect drains the iterator and closes it
func (ti *TripleIterator) Collect() ([]rdf.Triple, error) {
	defer ti.Close()
	var triples []rdf.Triple
	for ti.Next() {
		t, err := ti.Triple()
		if err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}
	return triples, ti.Err()
}
