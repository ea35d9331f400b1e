package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNQuads = `<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" <http://example.org/people> .
<http://example.org/bob> <http://xmlns.com/foaf/0.1/name> "Bob" <http://example.org/people> .
<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .
`

type harness struct {
	t    *testing.T
	dir  string
	base []string
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	return &harness{
		t:    t,
		dir:  dir,
		base: []string{"--backend", "sqlite", "--path", filepath.Join(dir, "store.db")},
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(append([]string{}, h.base...), args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "tristore %s", strings.Join(args, " "))
	return out
}

func (h *harness) file(name, body string) string {
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCLI_ImportExport(t *testing.T) {
	h := newHarness(t)
	src := h.file("people.nq", sampleNQuads)

	assert.Equal(t, "imported 3 statements\n", h.mustRun("import", src))
	assert.Equal(t, "3\n", h.mustRun("count"))
	assert.Equal(t, "2\n", h.mustRun("count", "--context", "http://example.org/people"))

	contexts := strings.Split(strings.TrimSpace(h.mustRun("contexts")), "\n")
	require.Len(t, contexts, 3)
	assert.Equal(t, "<http://example.org/people>", contexts[0])
	assert.Equal(t, "<urn:x-rdflib:default>", contexts[1])
	assert.True(t, strings.HasPrefix(contexts[2], "_:"), "fresh blank context, got %s", contexts[2])

	out := h.mustRun("export", "--context", "<http://example.org/people>", "--format", "nt")
	assert.Equal(t, `<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" .
<http://example.org/bob> <http://xmlns.com/foaf/0.1/name> "Bob" .
`, out)

	dst := filepath.Join(h.dir, "all.nq")
	h.mustRun("export", dst)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, string(data), `"Alice" <http://example.org/people> .`)
}

func TestCLI_ImportIntoContext(t *testing.T) {
	h := newHarness(t)
	src := h.file("people.nq", sampleNQuads)

	h.mustRun("import", src, "--context", "http://example.org/all")
	assert.Equal(t, "3\n", h.mustRun("count", "--context", "http://example.org/all"))
	assert.Equal(t, "0\n", h.mustRun("count", "--context", "http://example.org/people"))

	// importing twice is idempotent
	h.mustRun("import", src, "--context", "http://example.org/all")
	assert.Equal(t, "3\n", h.mustRun("count"))
}

func TestCLI_ParseFailureStoresNothing(t *testing.T) {
	h := newHarness(t)
	bad := h.file("bad.nt", `<http://example.org/a> <http://example.org/b> <http://example.org/c> .
<http://example.org/a> <http://example.org/b> .
`)

	_, err := h.run("import", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, "0\n", h.mustRun("count"))
}

func TestCLI_NamespacesAndTurtle(t *testing.T) {
	h := newHarness(t)
	src := h.file("people.nq", sampleNQuads)
	h.mustRun("import", src, "--context", "http://example.org/people")
	h.mustRun("bind", "ex", "http://example.org/")
	h.mustRun("bind", "foaf", "http://xmlns.com/foaf/0.1/")

	ns := h.mustRun("namespaces")
	assert.Contains(t, ns, "ex\thttp://example.org/\n")
	assert.Contains(t, ns, "rdf\thttp://www.w3.org/1999/02/22-rdf-syntax-ns#\n")

	out := h.mustRun("export", "--context", "http://example.org/people", "--format", "ttl")
	assert.Equal(t, `@prefix ex: <http://example.org/> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .

ex:alice foaf:knows ex:bob ;
    foaf:name "Alice" .
ex:bob foaf:name "Bob" .
`, out)
}

func TestCLI_RemoveContextAndDestroy(t *testing.T) {
	h := newHarness(t)
	src := h.file("people.nq", sampleNQuads)
	h.mustRun("import", src)

	h.mustRun("remove-context", "http://example.org/people")
	assert.Equal(t, "1\n", h.mustRun("count"))

	assert.Contains(t, h.mustRun("destroy"), "Default Store")
	assert.Equal(t, "0\n", h.mustRun("count"))
}

func TestCLI_MissingStore(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("count", "--store", "people")
	require.ErrorIs(t, err, ErrNoStore)

	src := h.file("people.nq", sampleNQuads)
	h.mustRun("import", src, "--store", "people")
	assert.Equal(t, "3\n", h.mustRun("count", "--store", "people"))
	assert.Equal(t, "0\n", h.mustRun("count"))
}

func TestCLI_BadArguments(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("import", filepath.Join(h.dir, "data"))
	assert.Error(t, err, "format cannot be inferred")

	_, err = h.run("count", "--backend", "postgres")
	assert.Error(t, err)

	_, err = h.run("export", "--format", "rdfxml")
	assert.Error(t, err)
}

func TestParseContext(t *testing.T) {
	c, err := parseContext("<http://example.org/g>")
	require.NoError(t, err)
	assert.Equal(t, "<http://example.org/g>", c.String())

	c, err = parseContext("_:g1")
	require.NoError(t, err)
	assert.Equal(t, "_:g1", c.String())

	_, err = parseContext("_:")
	assert.Error(t, err)
	_, err = parseContext("")
	assert.Error(t, err)
}

func TestCLI_NamedGraphRoundTrip(t *testing.T) {
	src := newHarness(t)
	in := src.file("people.nq", sampleNQuads+
		`<http://example.org/alice> <http://example.org/age> "42"^^<http://www.w3.org/2001/XMLSchema#integer> <http://example.org/people> .
<http://example.org/bob> <http://example.org/motto> "hej"@sv <http://example.org/people> .
_:b1 <http://example.org/label> "line\nbreak" <http://example.org/people> .
`)
	src.mustRun("import", in)

	dump := filepath.Join(src.dir, "people.nt")
	src.mustRun("export", dump, "--context", "http://example.org/people")
	original := src.mustRun("export", "--context", "http://example.org/people", "--format", "nt")

	dst := newHarness(t)
	dst.mustRun("import", dump, "--context", "http://example.org/copy")
	copied := dst.mustRun("export", "--context", "http://example.org/copy", "--format", "nt")

	lines := func(s string) []string {
		out := strings.Split(strings.TrimSpace(s), "\n")
		sort.Strings(out)
		return out
	}
	assert.Len(t, lines(original), 5)
	assert.Equal(t, lines(original), lines(copied))
}

func TestCLI_ExportDashWritesStdout(t *testing.T) {
	h := newHarness(t)
	h.mustRun("import", h.file("people.nq", sampleNQuads))

	out := h.mustRun("export", "-", "--context", "http://example.org/people", "--format", "nt")
	assert.Contains(t, out, `"Alice" .`)

	out = h.mustRun("export", "-")
	assert.Contains(t, out, `"Alice" <http://example.org/people> .`)

	_, err := os.Stat("-")
	assert.True(t, os.IsNotExist(err))
}
