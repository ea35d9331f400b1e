package rdfio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
)

// ParseError reports where a document failed to parse
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// lineParser parses N-Triples and N-Quads. A fourth term on a line names the
// graph; lines without one belong to the default graph. PREFIX and @prefix
// directives are accepted so hand-written fixtures can use prefixed names.
type lineParser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	// quads is false when graph terms are rejected
	quads bool
}

func newLineParser(input string, quads bool) *lineParser {
	return &lineParser{
		input:    input,
		length:   len(input),
		prefixes: make(map[string]string),
		quads:    quads,
	}
}

// Parse parses the whole document
func (p *lineParser) Parse() ([]rdf.Quad, error) {
	var quads []rdf.Quad

	for p.pos < p.length {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}

		if p.matchKeyword("@prefix") || p.matchKeyword("PREFIX") {
			if err := p.parsePrefix(); err != nil {
				return nil, p.errorAt(err)
			}
			continue
		}

		quad, err := p.parseQuad()
		if err != nil {
			return nil, p.errorAt(err)
		}
		quads = append(quads, quad)
	}

	return quads, nil
}

func (p *lineParser) errorAt(err error) error {
	consumed := p.input[:min(p.pos, p.length)]
	line := strings.Count(consumed, "\n") + 1
	column := p.pos - strings.LastIndexByte(consumed, '\n')
	return &ParseError{Line: line, Column: column, Err: err}
}

func (p *lineParser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if isSpace(ch) {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func (p *lineParser) matchKeyword(keyword string) bool {
	end := p.pos + len(keyword)
	if end > p.length || !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	return end == p.length || isSpace(p.input[end])
}

func (p *lineParser) parsePrefix() error {
	for p.pos < p.length && !isSpace(p.input[p.pos]) {
		p.pos++
	}
	p.skipWhitespaceAndComments()

	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		p.pos++
	}
	if p.pos >= p.length {
		return fmt.Errorf("expected ':' after prefix name")
	}
	name := strings.TrimSpace(p.input[start:p.pos])
	p.pos++

	p.skipWhitespaceAndComments()
	iri, err := p.parseIRI()
	if err != nil {
		return fmt.Errorf("prefix %q: %w", name, err)
	}
	p.prefixes[name] = iri

	p.skipWhitespaceAndComments()
	if p.pos < p.length && p.input[p.pos] == '.' {
		p.pos++
	}
	return nil
}

// parseQuad parses: subject predicate object [graph] .
func (p *lineParser) parseQuad() (rdf.Quad, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("subject: %w", err)
	}
	p.skipWhitespaceAndComments()

	predicate, err := p.parseTerm()
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("predicate: %w", err)
	}
	p.skipWhitespaceAndComments()

	object, err := p.parseTerm()
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("object: %w", err)
	}
	p.skipWhitespaceAndComments()

	var graph rdf.Term
	if p.pos < p.length && p.input[p.pos] != '.' {
		if !p.quads {
			return rdf.Quad{}, fmt.Errorf("graph terms are not allowed in N-Triples")
		}
		graph, err = p.parseTerm()
		if err != nil {
			return rdf.Quad{}, fmt.Errorf("graph: %w", err)
		}
		if _, ok := graph.(*rdf.Literal); ok {
			return rdf.Quad{}, fmt.Errorf("graph: literal %s cannot name a graph", graph)
		}
		p.skipWhitespaceAndComments()
	}

	if p.pos >= p.length || p.input[p.pos] != '.' {
		return rdf.Quad{}, fmt.Errorf("expected '.' at end of statement")
	}
	p.pos++

	quad := rdf.NewQuad(subject, predicate, object, graph)
	if err := quad.Validate(); err != nil {
		return rdf.Quad{}, err
	}
	return quad, nil
}

func (p *lineParser) parseTerm() (rdf.Term, error) {
	if p.pos >= p.length {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch ch := p.input[p.pos]; {
	case ch == '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(iri), nil
	case ch == '_':
		return p.parseBlankNode()
	case ch == '"':
		return p.parseLiteral()
	case ch == '-' || ch == '+' || (ch >= '0' && ch <= '9'):
		return p.parseNumber()
	case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
		return p.parsePrefixedName()
	default:
		return nil, fmt.Errorf("unexpected character %q", ch)
	}
}

func (p *lineParser) parseIRI() (string, error) {
	if p.pos >= p.length || p.input[p.pos] != '<' {
		return "", fmt.Errorf("expected '<' at start of IRI")
	}
	p.pos++

	var iri strings.Builder
	for p.pos < p.length && p.input[p.pos] != '>' {
		ch := p.input[p.pos]
		switch {
		case ch == '\\':
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			iri.WriteRune(r)
		case isSpace(ch):
			return "", fmt.Errorf("whitespace in IRI")
		default:
			iri.WriteByte(ch)
			p.pos++
		}
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("unclosed IRI")
	}
	p.pos++
	return iri.String(), nil
}

// parseUnicodeEscape reads \uXXXX or \UXXXXXXXX at the current position
func (p *lineParser) parseUnicodeEscape() (rune, error) {
	if p.pos+1 >= p.length {
		return 0, fmt.Errorf("unexpected end of input in escape sequence")
	}
	var width int
	switch p.input[p.pos+1] {
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return 0, fmt.Errorf("invalid escape \\%c", p.input[p.pos+1])
	}
	start := p.pos + 2
	if start+width > p.length {
		return 0, fmt.Errorf("truncated unicode escape")
	}
	code, err := strconv.ParseUint(p.input[start:start+width], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid unicode escape: %w", err)
	}
	p.pos = start + width
	return rune(code), nil
}

func (p *lineParser) parseBlankNode() (rdf.Term, error) {
	if p.pos+1 >= p.length || p.input[p.pos+1] != ':' {
		return nil, fmt.Errorf("expected ':' after '_' in blank node")
	}
	p.pos += 2

	start := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if isSpace(ch) || ch == '<' || ch == '"' {
			break
		}
		// a trailing '.' ends the statement
		if ch == '.' && (p.pos+1 >= p.length || isSpace(p.input[p.pos+1])) {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("empty blank node label")
	}
	return rdf.NewBlankNode(p.input[start:p.pos]), nil
}

func (p *lineParser) parseLiteral() (rdf.Term, error) {
	p.pos++

	var value strings.Builder
	for p.pos < p.length && p.input[p.pos] != '"' {
		ch := p.input[p.pos]
		if ch != '\\' {
			value.WriteByte(ch)
			p.pos++
			continue
		}
		if p.pos+1 >= p.length {
			return nil, fmt.Errorf("unexpected end of input in escape sequence")
		}
		switch esc := p.input[p.pos+1]; esc {
		case 'u', 'U':
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return nil, err
			}
			value.WriteRune(r)
			continue
		case 'n':
			value.WriteByte('\n')
		case 't':
			value.WriteByte('\t')
		case 'r':
			value.WriteByte('\r')
		case 'b':
			value.WriteByte('\b')
		case 'f':
			value.WriteByte('\f')
		case '"', '\'', '\\':
			value.WriteByte(esc)
		default:
			return nil, fmt.Errorf("invalid escape \\%c", esc)
		}
		p.pos += 2
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("unclosed string literal")
	}
	p.pos++

	if p.pos < p.length && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length {
			ch := p.input[p.pos]
			if !(ch == '-' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
				break
			}
			p.pos++
		}
		if p.pos == start {
			return nil, fmt.Errorf("empty language tag")
		}
		return rdf.NewLiteralWithLanguage(value.String(), p.input[start:p.pos]), nil
	}

	if p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^' {
		p.pos += 2
		datatype, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("datatype: %w", err)
		}
		iri, ok := datatype.(*rdf.NamedNode)
		if !ok {
			return nil, fmt.Errorf("datatype must be an IRI")
		}
		return rdf.NewLiteralWithDatatype(value.String(), iri), nil
	}

	return rdf.NewLiteral(value.String()), nil
}

func (p *lineParser) parseNumber() (rdf.Term, error) {
	start := p.pos
	if p.input[p.pos] == '-' || p.input[p.pos] == '+' {
		p.pos++
	}

	digits := p.skipDigits()
	decimal := false
	if p.pos+1 < p.length && p.input[p.pos] == '.' && p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9' {
		decimal = true
		p.pos++
		digits += p.skipDigits()
	}
	double := false
	if p.pos < p.length && (p.input[p.pos] == 'e' || p.input[p.pos] == 'E') {
		double = true
		p.pos++
		if p.pos < p.length && (p.input[p.pos] == '-' || p.input[p.pos] == '+') {
			p.pos++
		}
		if p.skipDigits() == 0 {
			return nil, fmt.Errorf("invalid exponent")
		}
	}
	if digits == 0 {
		return nil, fmt.Errorf("invalid number")
	}

	lexical := p.input[start:p.pos]
	switch {
	case double:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDDouble), nil
	case decimal:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDDecimal), nil
	default:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDInteger), nil
	}
}

func (p *lineParser) skipDigits() int {
	n := 0
	for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
		n++
	}
	return n
}

func (p *lineParser) parsePrefixedName() (rdf.Term, error) {
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		if isSpace(p.input[p.pos]) {
			return nil, fmt.Errorf("invalid character in prefixed name")
		}
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("expected ':' in prefixed name")
	}
	prefix := p.input[start:p.pos]
	p.pos++

	localStart := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if isSpace(ch) || ch == '<' || ch == '>' || ch == '"' {
			break
		}
		if ch == '.' && (p.pos+1 >= p.length || isSpace(p.input[p.pos+1])) {
			break
		}
		p.pos++
	}

	base, ok := p.prefixes[prefix]
	if !ok {
		return nil, fmt.Errorf("undefined prefix: %s", prefix)
	}
	return rdf.NewNamedNode(base + p.input[localStart:p.pos]), nil
}
