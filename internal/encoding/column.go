package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
)

var ErrMalformedColumn = errors.New("malformed column value")

// Column is the storable form of a term: a value plus an explicit kind.
// IRIs and blank node ids are stored as themselves; literals use a compound
// encoding that keeps the language and datatype, including their absence.
type Column struct {
	Value string
	Kind  rdf.TermKind
}

// literal compound flags
const (
	flagLanguage byte = 1 << iota
	flagDatatype
)

// EncodeColumn converts a term into its column form
func EncodeColumn(term rdf.Term) (Column, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return Column{Value: t.IRI, Kind: rdf.TermKindNamedNode}, nil
	case *rdf.BlankNode:
		return Column{Value: t.ID, Kind: rdf.TermKindBlankNode}, nil
	case *rdf.Literal:
		return Column{Value: encodeLiteral(t), Kind: rdf.TermKindLiteral}, nil
	case nil:
		return Column{}, fmt.Errorf("%w: nil term", rdf.ErrInvalidTerm)
	default:
		return Column{}, fmt.Errorf("%w: unknown term type %T", rdf.ErrInvalidTerm, term)
	}
}

// DecodeColumn converts a column back into a term
func DecodeColumn(col Column) (rdf.Term, error) {
	switch col.Kind {
	case rdf.TermKindNamedNode:
		return rdf.NewNamedNode(col.Value), nil
	case rdf.TermKindBlankNode:
		return rdf.NewBlankNode(col.Value), nil
	case rdf.TermKindLiteral:
		return decodeLiteral(col.Value)
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformedColumn, col.Kind)
	}
}

// DecodeTerm rebuilds a term from its index key and the dictionary value
func DecodeTerm(encoded EncodedTerm, value []byte) (rdf.Term, error) {
	return DecodeColumn(Column{Value: string(value), Kind: encoded.Kind()})
}

// Layout: flags, uvarint(len(lexical)), lexical, uvarint(len(lang)), lang, datatype
func encodeLiteral(lit *rdf.Literal) string {
	language := strings.ToLower(lit.Language)
	var flags byte
	if lit.Tagged() {
		flags |= flagLanguage
	}
	if lit.Datatype != nil {
		flags |= flagDatatype
	}

	buf := make([]byte, 0, 1+2*binary.MaxVarintLen64+len(lit.Value)+len(language)+32)
	buf = append(buf, flags)
	buf = binary.AppendUvarint(buf, uint64(len(lit.Value)))
	buf = append(buf, lit.Value...)
	buf = binary.AppendUvarint(buf, uint64(len(language)))
	buf = append(buf, language...)
	if lit.Datatype != nil {
		buf = append(buf, lit.Datatype.IRI...)
	}
	return string(buf)
}

func decodeLiteral(value string) (rdf.Term, error) {
	data := []byte(value)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty literal", ErrMalformedColumn)
	}
	flags := data[0]
	data = data[1:]

	lexical, data, err := readChunk(data)
	if err != nil {
		return nil, err
	}
	language, data, err := readChunk(data)
	if err != nil {
		return nil, err
	}

	lit := &rdf.Literal{Value: lexical}
	if flags&flagLanguage != 0 {
		lit.Language = language
		lit.HasLanguage = true
	}
	if flags&flagDatatype != 0 {
		lit.Datatype = rdf.NewNamedNode(string(data))
	} else if len(data) > 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrMalformedColumn)
	}
	return lit, nil
}

func readChunk(data []byte) (string, []byte, error) {
	n, size := binary.Uvarint(data)
	if size <= 0 {
		return "", nil, fmt.Errorf("%w: bad length prefix", ErrMalformedColumn)
	}
	data = data[size:]
	if uint64(len(data)) < n {
		return "", nil, fmt.Errorf("%w: truncated", ErrMalformedColumn)
	}
	return string(data[:n]), data[n:], nil
}
