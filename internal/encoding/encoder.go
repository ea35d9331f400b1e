package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/zeebo/xxh3"
)

const (
	// Encoded term size (kind byte + 16 bytes for the 128-bit hash)
	EncodedTermSize = 17

	// Size of a store or row key derived from a 128-bit hash
	HashSize = 16
)

var ErrMalformedKey = errors.New("malformed index key")

// EncodedTerm is the fixed-width index form of a term: a kind byte followed
// by the 128-bit xxh3 hash of the term's column value.
type EncodedTerm [EncodedTermSize]byte

// Kind returns the term kind stored in the first byte
func (e EncodedTerm) Kind() rdf.TermKind {
	return rdf.TermKind(e[0])
}

// Hash128 computes a 128-bit xxhash3 hash of the input
func Hash128(b []byte) [HashSize]byte {
	hash := xxh3.Hash128(b)
	var result [HashSize]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeTerm encodes an RDF term into its index key and the column to
// persist in the term dictionary.
func EncodeTerm(term rdf.Term) (EncodedTerm, Column, error) {
	var encoded EncodedTerm

	col, err := EncodeColumn(term)
	if err != nil {
		return encoded, col, err
	}

	encoded[0] = byte(col.Kind)
	hash := Hash128([]byte(col.Value))
	copy(encoded[1:], hash[:])

	return encoded, col, nil
}

// MustEncodeTerm is EncodeTerm for terms already known to be valid
func MustEncodeTerm(term rdf.Term) EncodedTerm {
	encoded, _, err := EncodeTerm(term)
	if err != nil {
		panic(err)
	}
	return encoded
}

// EncodeKey concatenates encoded terms into a key for one of the indexes.
// The result sorts lexicographically by term order.
func EncodeKey(terms ...EncodedTerm) []byte {
	result := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, term := range terms {
		result = append(result, term[:]...)
	}
	return result
}

// SplitKey splits a key built by EncodeKey back into n encoded terms
func SplitKey(key []byte, n int) ([]EncodedTerm, error) {
	if len(key) != n*EncodedTermSize {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrMalformedKey, len(key), n*EncodedTermSize)
	}
	terms := make([]EncodedTerm, n)
	for i := range terms {
		offset := i * EncodedTermSize
		copy(terms[i][:], key[offset:offset+EncodedTermSize])
	}
	return terms, nil
}
