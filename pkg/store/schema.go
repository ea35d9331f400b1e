package store

import (
	"errors"

	"github.com/aleksaelezovic/tristore/internal/encoding"
	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/google/uuid"
)

// Key layout of the entity tables. Every row except the term dictionary is
// prefixed with the owning store key.
//
//	stores        store                      -> identifier
//	terms         term                       -> column value
//	contexts      store | term               -> context id
//	context_ids   store | context id         -> term
//	*_spo/pos/osp store | 3 x term           -> (empty)
//	*_cspo        store | context id | s,p,o -> (empty)
//	*_spoc        store | s,p,o | context id -> (empty)
//	ns_prefix     store | prefix             -> fixed flag | uri
//	ns_uri        store | uri                -> fixed flag | prefix
const (
	storeKeySize     = encoding.HashSize
	contextIDSize    = 16
	statementKeySize = 3 * encoding.EncodedTermSize
)

// storeKey identifies a store in every row it owns
type storeKey [storeKeySize]byte

func newStoreKey(identifier string) storeKey {
	return storeKey(encoding.Hash128([]byte(identifier)))
}

func (k storeKey) with(parts ...[]byte) []byte {
	n := storeKeySize
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	key = append(key, k[:]...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// collection is one physical statement collection: the rows whose object is
// a resource, or the rows whose object is a literal.
type collection struct {
	kind                     encoding.ObjectKind
	spo, pos, osp            Table
	membersCSPO, membersSPOC Table
}

var (
	resourceStatements = &collection{
		kind:        encoding.ObjectResource,
		spo:         TableURISPO,
		pos:         TableURIPOS,
		osp:         TableURIOSP,
		membersCSPO: TableURICSPO,
		membersSPOC: TableURISPOC,
	}
	literalStatements = &collection{
		kind:        encoding.ObjectLiteral,
		spo:         TableLitSPO,
		pos:         TableLitPOS,
		osp:         TableLitOSP,
		membersCSPO: TableLitCSPO,
		membersSPOC: TableLitSPOC,
	}
	allCollections = []*collection{resourceStatements, literalStatements}
)

// collectionsFor selects the collections a pattern with the given object can match.
// Resource rows come before literal rows when both apply.
func collectionsFor(object rdf.Term) []*collection {
	switch encoding.Classify(object) {
	case encoding.ObjectLiteral:
		return []*collection{literalStatements}
	case encoding.ObjectResource:
		return []*collection{resourceStatements}
	default:
		return allCollections
	}
}

// statementKey is the (s, p, o) identity of a statement row
type statementKey [3]encoding.EncodedTerm

func (sk statementKey) bytes() []byte {
	return encoding.EncodeKey(sk[0], sk[1], sk[2])
}

// indexKeys returns the SPO, POS and OSP keys of a statement
func (sk statementKey) indexKeys() (spo, pos, osp []byte) {
	return encoding.EncodeKey(sk[0], sk[1], sk[2]),
		encoding.EncodeKey(sk[1], sk[2], sk[0]),
		encoding.EncodeKey(sk[2], sk[0], sk[1])
}

func (c *collection) insert(txn Transaction, sk storeKey, st statementKey) error {
	spo, pos, osp := st.indexKeys()
	empty := []byte{}
	if err := txn.Set(c.spo, sk.with(spo), empty); err != nil {
		return err
	}
	if err := txn.Set(c.pos, sk.with(pos), empty); err != nil {
		return err
	}
	return txn.Set(c.osp, sk.with(osp), empty)
}

func (c *collection) delete(txn Transaction, sk storeKey, st statementKey) error {
	spo, pos, osp := st.indexKeys()
	if err := txn.Delete(c.spo, sk.with(spo)); err != nil {
		return err
	}
	if err := txn.Delete(c.pos, sk.with(pos)); err != nil {
		return err
	}
	return txn.Delete(c.osp, sk.with(osp))
}

func (c *collection) addMember(txn Transaction, sk storeKey, st statementKey, ctx uuid.UUID) error {
	empty := []byte{}
	if err := txn.Set(c.membersCSPO, sk.with(ctx[:], st.bytes()), empty); err != nil {
		return err
	}
	return txn.Set(c.membersSPOC, sk.with(st.bytes(), ctx[:]), empty)
}

func (c *collection) removeMember(txn Transaction, sk storeKey, st statementKey, ctx uuid.UUID) error {
	if err := txn.Delete(c.membersCSPO, sk.with(ctx[:], st.bytes())); err != nil {
		return err
	}
	return txn.Delete(c.membersSPOC, sk.with(st.bytes(), ctx[:]))
}

func (c *collection) isMember(txn Transaction, sk storeKey, st statementKey, ctx uuid.UUID) (bool, error) {
	_, err := txn.Get(c.membersSPOC, sk.with(st.bytes(), ctx[:]))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// memberships lists the ids of every context holding the statement.
// It opens an iterator, so callers in a write transaction must not hold another
// and should call it before the transaction writes.
func (c *collection) memberships(txn Transaction, sk storeKey, st statementKey) ([]uuid.UUID, error) {
	prefix := sk.with(st.bytes())
	it, err := txn.Scan(c.membersSPOC, prefix)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var ids []uuid.UUID
	for it.Next() {
		key := it.Key()
		if len(key) != len(prefix)+contextIDSize {
			continue
		}
		var id uuid.UUID
		copy(id[:], key[len(prefix):])
		ids = append(ids, id)
	}
	return ids, nil
}

// putTerm stores a term's column value in the dictionary if it is not there yet
func putTerm(txn Transaction, encoded encoding.EncodedTerm, col encoding.Column) error {
	value := []byte(col.Value)
	existing, err := txn.Get(TableTerms, encoded[:])
	if err == nil && string(existing) == col.Value {
		return nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return txn.Set(TableTerms, encoded[:], value)
}

// getTerm decodes a term from the dictionary
func getTerm(txn Transaction, encoded encoding.EncodedTerm) (rdf.Term, error) {
	value, err := txn.Get(TableTerms, encoded[:])
	if err != nil {
		return nil, err
	}
	return encoding.DecodeTerm(encoded, value)
}

// namespace row values carry a leading fixed flag
func namespaceValue(fixed bool, s string) []byte {
	v := make([]byte, 1, 1+len(s))
	if fixed {
		v[0] = 1
	}
	return append(v, s...)
}

func parseNamespaceValue(v []byte) (fixed bool, s string) {
	if len(v) == 0 {
		return false, ""
	}
	return v[0] == 1, string(v[1:])
}
