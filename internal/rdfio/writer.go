package rdfio

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
)

// lineWriter writes N-Triples or N-Quads, one sorted statement per line.
// N-Triples drops graph labels and duplicates; N-Quads omits the default graph.
type lineWriter struct {
	format Format
	quads  bool
}

func (lw *lineWriter) Format() Format {
	return lw.format
}

func (lw *lineWriter) Write(w io.Writer, quads []rdf.Quad) error {
	lines := make([]string, 0, len(quads))
	for _, q := range quads {
		if lw.quads && !rdf.IsDefaultGraph(q.Graph) {
			lines = append(lines, q.String())
		} else {
			lines = append(lines, q.Triple.String())
		}
	}
	return writeLines(w, sortedUnique(lines))
}

func sortedUnique(lines []string) []string {
	sort.Strings(lines)
	out := lines[:0]
	for i, line := range lines {
		if i == 0 || line != lines[i-1] {
			out = append(out, line)
		}
	}
	return out
}

func writeLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// turtleWriter writes Turtle grouped by subject, with prefixed names
// wherever a bound namespace covers an IRI.
type turtleWriter struct {
	prefixes []prefixBinding
}

type prefixBinding struct {
	prefix, uri string
}

func newTurtleWriter(prefixes map[string]string) *turtleWriter {
	tw := &turtleWriter{}
	for prefix, uri := range prefixes {
		tw.prefixes = append(tw.prefixes, prefixBinding{prefix: prefix, uri: uri})
	}
	sort.Slice(tw.prefixes, func(i, j int) bool {
		return tw.prefixes[i].prefix < tw.prefixes[j].prefix
	})
	return tw
}

func (tw *turtleWriter) Format() Format {
	return FormatTurtle
}

func (tw *turtleWriter) Write(w io.Writer, quads []rdf.Quad) error {
	type row struct{ s, p, o string }
	rows := make([]row, 0, len(quads))
	seen := make(map[row]bool, len(quads))
	used := make(map[string]bool)
	for _, q := range quads {
		r := row{
			s: tw.term(q.Subject, used),
			p: tw.predicate(q.Predicate, used),
			o: tw.term(q.Object, used),
		}
		if !seen[r] {
			seen[r] = true
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].s != rows[j].s {
			return rows[i].s < rows[j].s
		}
		if rows[i].p != rows[j].p {
			return rows[i].p < rows[j].p
		}
		return rows[i].o < rows[j].o
	})

	var lines []string
	for _, b := range tw.prefixes {
		if used[b.prefix] {
			lines = append(lines, fmt.Sprintf("@prefix %s: <%s> .", b.prefix, b.uri))
		}
	}
	if len(lines) > 0 && len(rows) > 0 {
		lines = append(lines, "")
	}

	for i := 0; i < len(rows); {
		subject := rows[i].s
		j := i
		var preds []string
		for j < len(rows) && rows[j].s == subject {
			pred := rows[j].p
			var objects []string
			for j < len(rows) && rows[j].s == subject && rows[j].p == pred {
				objects = append(objects, rows[j].o)
				j++
			}
			preds = append(preds, pred+" "+strings.Join(objects, ", "))
		}
		lines = append(lines, subject+" "+strings.Join(preds, " ;\n    ")+" .")
		i = j
	}
	return writeLines(w, lines)
}

func (tw *turtleWriter) predicate(t rdf.Term, used map[string]bool) string {
	if n, ok := t.(*rdf.NamedNode); ok && n.IRI == rdf.RDFType.IRI {
		return "a"
	}
	return tw.term(t, used)
}

func (tw *turtleWriter) term(t rdf.Term, used map[string]bool) string {
	switch v := t.(type) {
	case *rdf.NamedNode:
		if name, ok := tw.prefixed(v.IRI, used); ok {
			return name
		}
	case *rdf.Literal:
		if !v.Tagged() && v.Datatype != nil {
			if name, ok := tw.prefixed(v.Datatype.IRI, used); ok {
				return `"` + rdf.EscapeString(v.Value) + `"^^` + name
			}
		}
	}
	return t.String()
}

// prefixed shortens iri with the longest matching namespace
func (tw *turtleWriter) prefixed(iri string, used map[string]bool) (string, bool) {
	best := -1
	for i, b := range tw.prefixes {
		if !strings.HasPrefix(iri, b.uri) || !isLocalName(iri[len(b.uri):]) {
			continue
		}
		if best < 0 || len(b.uri) > len(tw.prefixes[best].uri) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	b := tw.prefixes[best]
	used[b.prefix] = true
	return b.prefix + ":" + iri[len(b.uri):], true
}

// isLocalName accepts the conservative subset of Turtle local names that
// needs no escaping.
func isLocalName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
		case (ch >= '0' && ch <= '9') || ch == '-':
			if i == 0 && ch == '-' {
				return false
			}
		default:
			return false
		}
	}
	return true
}
