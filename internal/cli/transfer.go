package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/aleksaelezovic/tristore/internal/rdfio"
	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/aleksaelezovic/tristore/pkg/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	Context string
	Format  string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an N-Triples or N-Quads document",
		Long: `Parse a whole document and add its statements to the store.

Nothing is stored when the document fails to parse. Large documents are
committed in batches; importing the same document again is harmless.
Statements go into
--context when given; otherwise N-Quads graph labels are kept and the
remaining statements go into a fresh blank-node context.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Context, "context", "", "context IRI or _:label to import into")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "input format (nt|nq), default from extension")

	return cmd
}

func runImport(rootOpts *RootOptions, opts *ImportOptions, path string, cmd *cobra.Command) error {
	format, err := resolveFormat(opts.Format, path)
	if err != nil {
		return err
	}
	reader, err := rdfio.NewReader(format)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	quads, err := reader.Read(in)
	if err != nil {
		return err
	}

	var fallback rdf.Term = rdf.NewBlankNode(uuid.NewString())
	forced := opts.Context != ""
	if forced {
		if fallback, err = parseContext(opts.Context); err != nil {
			return err
		}
	}

	s, err := rootOpts.openStore(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	for i := range quads {
		if forced || quads[i].Graph == nil {
			quads[i].Graph = fallback
		}
	}
	if err := s.AddN(quads); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d statements\n", len(quads))
	return nil
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Context string
	Format  string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a context or the whole store",
		Long: `Serialize one context, or every context when --context is omitted.
Output goes to stdout when no file or - is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runExport(rootOpts, opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Context, "context", "", "context IRI or _:label to export")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "output format (nt|nq|ttl), default from extension or nq")

	return cmd
}

func runExport(rootOpts *RootOptions, opts *ExportOptions, path string, cmd *cobra.Command) error {
	if path == "-" {
		path = ""
	}
	format := rdfio.FormatNQuads
	if opts.Format != "" || path != "" {
		var err error
		if format, err = resolveFormat(opts.Format, path); err != nil {
			return err
		}
	}

	var context rdf.Term
	if opts.Context != "" {
		var err error
		if context, err = parseContext(opts.Context); err != nil {
			return err
		}
	}

	s, err := rootOpts.openStore(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	var contexts []rdf.Term
	if context != nil {
		contexts = []rdf.Term{context}
	} else {
		it, err := s.Contexts(nil)
		if err != nil {
			return err
		}
		contexts = it.Collect()
	}

	var quads []rdf.Quad
	for _, c := range contexts {
		it, err := s.Triples(store.Pattern{}, c)
		if err != nil {
			return err
		}
		triples, err := it.Collect()
		if err != nil {
			return err
		}
		for _, t := range triples {
			quads = append(quads, rdf.Quad{Triple: t, Graph: c})
		}
	}

	nsIt, err := s.Namespaces()
	if err != nil {
		return err
	}
	namespaces, err := nsIt.Collect()
	if err != nil {
		return err
	}
	prefixes := make(map[string]string, len(namespaces))
	for _, ns := range namespaces {
		prefixes[ns.Prefix] = ns.URI
	}

	writer, err := rdfio.NewWriter(format, prefixes)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return writer.Write(out, quads)
}

func resolveFormat(flag, path string) (rdfio.Format, error) {
	if flag != "" {
		return rdfio.ParseFormat(flag)
	}
	if path == "" || path == "-" {
		return "", fmt.Errorf("--format is required without a file name")
	}
	return rdfio.FormatFromPath(path)
}
