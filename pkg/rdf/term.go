package rdf

import (
	"fmt"
	"strings"
)

// TermKind identifies the variant of an RDF term
type TermKind byte

const (
	TermKindNamedNode TermKind = iota + 1
	TermKindBlankNode
	TermKindLiteral
)

func (k TermKind) String() string {
	switch k {
	case TermKindNamedNode:
		return "uri"
	case TermKindBlankNode:
		return "bnode"
	case TermKindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term represents an RDF term (IRI, blank node, or literal)
type Term interface {
	Kind() TermKind
	String() string
	Equals(other Term) bool
}

// NamedNode represents an IRI
type NamedNode struct {
	IRI string
}

func NewNamedNode(iri string) *NamedNode {
	return &NamedNode{IRI: iri}
}

func (n *NamedNode) Kind() TermKind {
	return TermKindNamedNode
}

func (n *NamedNode) String() string {
	return "<" + escapeIRI(n.IRI) + ">"
}

func (n *NamedNode) Equals(other Term) bool {
	if on, ok := other.(*NamedNode); ok {
		return n.IRI == on.IRI
	}
	return false
}

// BlankNode represents a blank node
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

func (b *BlankNode) Kind() TermKind {
	return TermKindBlankNode
}

func (b *BlankNode) String() string {
	return "_:" + b.ID
}

func (b *BlankNode) Equals(other Term) bool {
	if ob, ok := other.(*BlankNode); ok {
		return b.ID == ob.ID
	}
	return false
}

// Literal represents an RDF literal.
// A literal is language-tagged when Language is set or HasLanguage is true,
// so an empty tag differs from no tag. Likewise a nil Datatype differs from
// an empty datatype IRI.
type Literal struct {
	Value       string
	Language    string
	HasLanguage bool
	Datatype    *NamedNode
}

func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

// NewLiteralWithLanguage creates a language-tagged literal. Tags are
// case-insensitive and kept in lower case.
func NewLiteralWithLanguage(value, language string) *Literal {
	return &Literal{Value: value, Language: strings.ToLower(language), HasLanguage: true}
}

// Tagged reports whether the literal carries a language tag
func (l *Literal) Tagged() bool {
	return l.HasLanguage || l.Language != ""
}

func NewLiteralWithDatatype(value string, datatype *NamedNode) *Literal {
	return &Literal{Value: value, Datatype: datatype}
}

func (l *Literal) Kind() TermKind {
	return TermKindLiteral
}

func (l *Literal) String() string {
	result := `"` + EscapeString(l.Value) + `"`
	if l.Tagged() {
		result += "@" + l.Language
	} else if l.Datatype != nil {
		result += "^^" + l.Datatype.String()
	}
	return result
}

func (l *Literal) Equals(other Term) bool {
	ol, ok := other.(*Literal)
	if !ok {
		return false
	}
	if l.Value != ol.Value || l.Tagged() != ol.Tagged() || !strings.EqualFold(l.Language, ol.Language) {
		return false
	}
	if l.Datatype == nil || ol.Datatype == nil {
		return l.Datatype == nil && ol.Datatype == nil
	}
	return l.Datatype.Equals(ol.Datatype)
}

// Triple represents an RDF triple (subject, predicate, object)
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) Triple {
	return Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// Equals reports whether both triples hold equal terms in every position
func (t Triple) Equals(other Triple) bool {
	return termEquals(t.Subject, other.Subject) &&
		termEquals(t.Predicate, other.Predicate) &&
		termEquals(t.Object, other.Object)
}

// Validate checks that the triple is fully bound and that every position
// holds a term of an allowed kind.
func (t Triple) Validate() error {
	switch t.Subject.(type) {
	case *NamedNode, *BlankNode:
	case nil:
		return &TermError{Position: PositionSubject, Reason: "unbound"}
	default:
		return &TermError{Position: PositionSubject, Term: t.Subject, Reason: "must be an IRI or blank node"}
	}
	switch t.Predicate.(type) {
	case *NamedNode:
	case nil:
		return &TermError{Position: PositionPredicate, Reason: "unbound"}
	default:
		return &TermError{Position: PositionPredicate, Term: t.Predicate, Reason: "must be an IRI"}
	}
	if t.Object == nil {
		return &TermError{Position: PositionObject, Reason: "unbound"}
	}
	return nil
}

// Quad represents an RDF quad. A nil Graph stands for the default graph.
type Quad struct {
	Triple
	Graph Term
}

func NewQuad(subject, predicate, object, graph Term) Quad {
	return Quad{
		Triple: NewTriple(subject, predicate, object),
		Graph:  graph,
	}
}

func (q Quad) String() string {
	if q.Graph == nil {
		return q.Triple.String()
	}
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

func termEquals(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

// EscapeString escapes a lexical value for use inside a quoted N-Triples literal
func EscapeString(s string) string {
	if !strings.ContainsAny(s, "\"\\\n\r\t") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func escapeIRI(iri string) string {
	if !strings.ContainsAny(iri, "<>\"{}|^`\\ ") {
		return iri
	}
	var b strings.Builder
	for _, r := range iri {
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\', ' ':
			fmt.Fprintf(&b, "\\u%04X", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
