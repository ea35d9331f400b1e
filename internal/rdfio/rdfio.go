package rdfio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
)

// Format names an interchange format
type Format string

const (
	FormatNTriples Format = "nt"
	FormatNQuads   Format = "nq"
	FormatTurtle   Format = "ttl"
)

// ParseFormat accepts a format name, file extension or MIME type
func ParseFormat(name string) (Format, error) {
	ct := strings.ToLower(strings.TrimSpace(name))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	ct = strings.TrimPrefix(ct, ".")

	switch ct {
	case "nt", "ntriples", "n-triples", "application/n-triples", "text/plain":
		return FormatNTriples, nil
	case "nq", "nquads", "n-quads", "application/n-quads":
		return FormatNQuads, nil
	case "ttl", "turtle", "text/turtle", "application/x-turtle":
		return FormatTurtle, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// FormatFromPath guesses the format from a file extension
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("cannot infer format of %s", path)
	}
	return ParseFormat(ext)
}

// Reader parses a whole document into quads. A nil graph means the
// document did not name one.
type Reader interface {
	Read(r io.Reader) ([]rdf.Quad, error)
	Format() Format
}

// NewReader returns a reader for format
func NewReader(format Format) (Reader, error) {
	switch format {
	case FormatNTriples:
		return &lineReader{format: format}, nil
	case FormatNQuads:
		return &lineReader{format: format, quads: true}, nil
	default:
		return nil, fmt.Errorf("no reader for format %q", format)
	}
}

type lineReader struct {
	format Format
	quads  bool
}

func (lr *lineReader) Format() Format {
	return lr.format
}

func (lr *lineReader) Read(r io.Reader) ([]rdf.Quad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	quads, err := newLineParser(string(data), lr.quads).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lr.format, err)
	}
	return quads, nil
}

// Writer serializes quads
type Writer interface {
	Write(w io.Writer, quads []rdf.Quad) error
	Format() Format
}

// NewWriter returns a writer for format. prefixes maps namespace prefixes
// to URIs and is only used by Turtle.
func NewWriter(format Format, prefixes map[string]string) (Writer, error) {
	switch format {
	case FormatNTriples:
		return &lineWriter{format: format}, nil
	case FormatNQuads:
		return &lineWriter{format: format, quads: true}, nil
	case FormatTurtle:
		return newTurtleWriter(prefixes), nil
	default:
		return nil, fmt.Errorf("no writer for format %q", format)
	}
}

// SupportedFormats lists every format with a writer
func SupportedFormats() []Format {
	return []Format{FormatNTriples, FormatNQuads, FormatTurtle}
}
