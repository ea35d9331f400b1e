package encoding

import (
	"errors"
	"testing"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeColumn_RoundTrip(t *testing.T) {
	terms := []rdf.Term{
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewBlankNode("b0"),
		rdf.NewLiteral("plain"),
		rdf.NewLiteral(""),
		rdf.NewLiteralWithLanguage("hallo", "de"),
		rdf.NewIntegerLiteral(42),
		rdf.NewLiteralWithDatatype("x", rdf.NewNamedNode("")),
		rdf.NewLiteral("has\x00nul and ^^ separators"),
	}

	for _, term := range terms {
		t.Run(term.String(), func(t *testing.T) {
			col, err := EncodeColumn(term)
			require.NoError(t, err)
			assert.Equal(t, term.Kind(), col.Kind)

			decoded, err := DecodeColumn(col)
			require.NoError(t, err)
			assert.True(t, term.Equals(decoded), "got %s", decoded)
		})
	}
}

func TestEncodeColumn_Invalid(t *testing.T) {
	_, err := EncodeColumn(nil)
	assert.True(t, errors.Is(err, rdf.ErrInvalidTerm))
}

func TestDecodeColumn_Malformed(t *testing.T) {
	_, err := DecodeColumn(Column{Value: "", Kind: rdf.TermKindLiteral})
	assert.True(t, errors.Is(err, ErrMalformedColumn))

	_, err = DecodeColumn(Column{Value: "\x00\x09short", Kind: rdf.TermKindLiteral})
	assert.True(t, errors.Is(err, ErrMalformedColumn))

	_, err = DecodeColumn(Column{Value: "x", Kind: rdf.TermKind(99)})
	assert.True(t, errors.Is(err, ErrMalformedColumn))
}

func TestEncodeTerm_DistinguishesKinds(t *testing.T) {
	iri, _, err := EncodeTerm(rdf.NewNamedNode("x"))
	require.NoError(t, err)
	bnode, _, err := EncodeTerm(rdf.NewBlankNode("x"))
	require.NoError(t, err)
	assert.NotEqual(t, iri, bnode)
	assert.Equal(t, rdf.TermKindNamedNode, iri.Kind())
	assert.Equal(t, rdf.TermKindBlankNode, bnode.Kind())

	// language tags are case-insensitive
	a := MustEncodeTerm(&rdf.Literal{Value: "v", Language: "EN"})
	b := MustEncodeTerm(rdf.NewLiteralWithLanguage("v", "en"))
	assert.Equal(t, a, b)

	// absent and empty datatype are different terms
	c := MustEncodeTerm(rdf.NewLiteral("v"))
	d := MustEncodeTerm(rdf.NewLiteralWithDatatype("v", rdf.NewNamedNode("")))
	assert.NotEqual(t, c, d)

	// an empty language tag is not the same as no tag
	e := MustEncodeTerm(rdf.NewLiteralWithLanguage("v", ""))
	assert.NotEqual(t, c, e)

	col, err := EncodeColumn(rdf.NewLiteralWithLanguage("v", ""))
	require.NoError(t, err)
	decoded, err := DecodeColumn(col)
	require.NoError(t, err)
	assert.True(t, decoded.(*rdf.Literal).Tagged())
}

func TestKeys(t *testing.T) {
	s := MustEncodeTerm(rdf.NewNamedNode("http://example.org/s"))
	p := MustEncodeTerm(rdf.NewNamedNode("http://example.org/p"))
	o := MustEncodeTerm(rdf.NewLiteral("o"))

	key := EncodeKey(s, p, o)
	require.Len(t, key, 3*EncodedTermSize)

	parts, err := SplitKey(key, 3)
	require.NoError(t, err)
	assert.Equal(t, []EncodedTerm{s, p, o}, parts)

	_, err = SplitKey(key[:10], 3)
	assert.True(t, errors.Is(err, ErrMalformedKey))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ObjectAny, Classify(nil))
	assert.Equal(t, ObjectLiteral, Classify(rdf.NewLiteral("x")))
	assert.Equal(t, ObjectResource, Classify(rdf.NewNamedNode("x")))
	assert.Equal(t, ObjectResource, Classify(rdf.NewBlankNode("x")))
}

func literalGen() *rapid.Generator[*rdf.Literal] {
	return rapid.Custom(func(t *rapid.T) *rdf.Literal {
		lit := &rdf.Literal{Value: rapid.String().Draw(t, "value")}
		switch rapid.IntRange(0, 3).Draw(t, "variant") {
		case 1:
			lit.Language = rapid.StringMatching(`[a-z]{2}(-[a-z0-9]{2,8})?`).Draw(t, "lang")
		case 2:
			lit.Datatype = rdf.NewNamedNode(rapid.String().Draw(t, "datatype"))
		case 3:
			lit.HasLanguage = true
		}
		return lit
	})
}

func TestLiteralColumn_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lit := literalGen().Draw(t, "literal")

		col, err := EncodeColumn(lit)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := DecodeColumn(col)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !lit.Equals(decoded) {
			t.Fatalf("round trip changed %s into %s", lit, decoded)
		}

		other := literalGen().Draw(t, "other")
		sameKey := MustEncodeTerm(lit) == MustEncodeTerm(other)
		if sameKey != lit.Equals(other) {
			t.Fatalf("key equality %v disagrees with term equality for %s and %s", sameKey, lit, other)
		}
	})
}
