package rdf

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedNode(t *testing.T) {
	node := NewNamedNode("http://example.org/resource")
	assert.Equal(t, TermKindNamedNode, node.Kind())
	assert.Equal(t, "<http://example.org/resource>", node.String())
	assert.True(t, node.Equals(NewNamedNode("http://example.org/resource")))
	assert.False(t, node.Equals(NewNamedNode("http://example.org/different")))
	assert.False(t, node.Equals(NewLiteral("http://example.org/resource")))
}

func TestBlankNode(t *testing.T) {
	node := NewBlankNode("b1")
	assert.Equal(t, TermKindBlankNode, node.Kind())
	assert.Equal(t, "_:b1", node.String())
	assert.True(t, node.Equals(NewBlankNode("b1")))
	assert.False(t, node.Equals(NewBlankNode("b2")))
	assert.False(t, node.Equals(NewNamedNode("b1")))
}

func TestLiteral_String(t *testing.T) {
	tests := []struct {
		name     string
		literal  *Literal
		expected string
	}{
		{"plain", NewLiteral("hello"), `"hello"`},
		{"language", NewLiteralWithLanguage("hello", "EN"), `"hello"@en`},
		{"datatype", NewIntegerLiteral(42), `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"escaped", NewLiteral("a \"quoted\"\nline"), `"a \"quoted\"\nline"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.literal.String())
		})
	}
}

func TestLiteral_Equals(t *testing.T) {
	assert.True(t, NewLiteral("x").Equals(NewLiteral("x")))
	assert.False(t, NewLiteral("x").Equals(NewLiteral("y")))
	assert.True(t, NewLiteralWithLanguage("x", "en").Equals(&Literal{Value: "x", Language: "EN"}))
	assert.False(t, NewLiteralWithLanguage("x", "en").Equals(NewLiteralWithLanguage("x", "de")))
	assert.False(t, NewLiteral("x").Equals(NewLiteralWithLanguage("x", "en")))

	// absent language differs from an empty tag
	assert.False(t, NewLiteral("x").Equals(NewLiteralWithLanguage("x", "")))
	assert.True(t, NewLiteralWithLanguage("x", "").Equals(&Literal{Value: "x", HasLanguage: true}))

	// absent datatype differs from an empty datatype IRI
	assert.False(t, NewLiteral("x").Equals(NewLiteralWithDatatype("x", NewNamedNode(""))))
	assert.True(t, NewLiteralWithDatatype("x", NewNamedNode("")).Equals(NewLiteralWithDatatype("x", NewNamedNode(""))))
	assert.False(t, NewLiteral("1").Equals(NewIntegerLiteral(1)))
}

func TestTypedLiteralHelpers(t *testing.T) {
	assert.Equal(t, "3.5", NewDoubleLiteral(3.5).Value)
	assert.Equal(t, "true", NewBooleanLiteral(true).Value)
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01", NewDateLiteral(day).Value)
	assert.Equal(t, "2024-03-01T10:00:00Z", NewDateTimeLiteral(day).Value)
}

func TestTriple_Validate(t *testing.T) {
	s := NewNamedNode("http://example.org/s")
	p := NewNamedNode("http://example.org/p")
	o := NewLiteral("o")

	require.NoError(t, NewTriple(s, p, o).Validate())
	require.NoError(t, NewTriple(NewBlankNode("b"), p, NewBlankNode("c")).Validate())

	tests := []struct {
		name     string
		triple   Triple
		position Position
	}{
		{"literal subject", NewTriple(o, p, o), PositionSubject},
		{"unbound subject", NewTriple(nil, p, o), PositionSubject},
		{"blank predicate", NewTriple(s, NewBlankNode("p"), o), PositionPredicate},
		{"literal predicate", NewTriple(s, o, o), PositionPredicate},
		{"unbound object", NewTriple(s, p, nil), PositionObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.triple.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTerm))

			var termErr *TermError
			require.ErrorAs(t, err, &termErr)
			assert.Equal(t, tt.position, termErr.Position)
		})
	}
}

func TestQuad_String(t *testing.T) {
	s := NewNamedNode("http://example.org/s")
	p := NewNamedNode("http://example.org/p")

	q := NewQuad(s, p, NewLiteral("o"), nil)
	assert.Equal(t, `<http://example.org/s> <http://example.org/p> "o" .`, q.String())

	q.Graph = NewNamedNode("http://example.org/g")
	assert.Equal(t, `<http://example.org/s> <http://example.org/p> "o" <http://example.org/g> .`, q.String())
}

func TestIsDefaultGraph(t *testing.T) {
	assert.True(t, IsDefaultGraph(nil))
	assert.True(t, IsDefaultGraph(DefaultGraph()))
	assert.False(t, IsDefaultGraph(NewNamedNode("http://example.org/g")))
	assert.False(t, IsDefaultGraph(NewBlankNode(DefaultGraphIRI)))
}
