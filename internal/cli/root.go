package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aleksaelezovic/tristore/internal/config"
	"github.com/aleksaelezovic/tristore/internal/storage"
	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/aleksaelezovic/tristore/pkg/store"
	"github.com/spf13/cobra"
)

// ErrNoStore is returned when the configured store does not exist
var ErrNoStore = errors.New("no such store")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Backend    string
	Path       string
	Store      string
	Verbose    bool
}

// NewRootCommand creates the root command for the tristore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tristore",
		Short:         "Context-aware RDF triple store",
		Long:          "Import, export and inspect RDF statements kept in a Badger or SQLite backed store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath, "config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (badger|sqlite|memory)")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "database directory or file")
	cmd.PersistentFlags().StringVarP(&opts.Store, "store", "s", "", "store identifier")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewContextsCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewNamespacesCommand(opts))
	cmd.AddCommand(NewBindCommand(opts))
	cmd.AddCommand(NewRemoveContextCommand(opts))
	cmd.AddCommand(NewDestroyCommand(opts))

	return cmd
}

// loadConfig merges the config file with flag overrides
func (o *RootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	required := cmd.Flags().Changed("config")
	cfg, err := config.Load(o.ConfigPath, required)
	if err != nil {
		return config.Config{}, err
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.Path != "" {
		cfg.Path = o.Path
	}
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// openStore opens the configured store. Without create a missing store
// yields ErrNoStore.
func (o *RootOptions) openStore(cmd *cobra.Command, create bool) (*store.Store, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	backing, err := storage.Open(cfg.Backend, cfg.Path)
	if err != nil {
		return nil, err
	}

	s, err := store.New(backing, store.Options{
		Identifier:       cfg.Store,
		ContextCacheSize: cfg.ContextCacheSize,
		Logger:           logger,
	})
	if err != nil {
		backing.Close()
		return nil, err
	}

	status, err := s.Open(create)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open store %q: %w", cfg.Store, err)
	}
	if status == store.NoStore {
		s.Close()
		return nil, fmt.Errorf("%w: %q", ErrNoStore, cfg.Store)
	}
	logger.Debug("opened store", slog.String("backend", cfg.Backend), slog.String("path", cfg.Path))
	return s, nil
}

// parseContext reads a context argument: _:label is a blank node, anything
// else an IRI with optional angle brackets.
func parseContext(value string) (rdf.Term, error) {
	value = strings.TrimSpace(value)
	if label, ok := strings.CutPrefix(value, "_:"); ok {
		if label == "" {
			return nil, fmt.Errorf("empty blank node label")
		}
		return rdf.NewBlankNode(label), nil
	}
	value = strings.TrimSuffix(strings.TrimPrefix(value, "<"), ">")
	if value == "" {
		return nil, fmt.Errorf("empty context IRI")
	}
	return rdf.NewNamedNode(value), nil
}
