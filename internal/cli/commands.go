package cli

import (
	"fmt"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
	"github.com/spf13/cobra"
)

// NewContextsCommand creates the contexts command.
func NewContextsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List the contexts of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			it, err := s.Contexts(nil)
			if err != nil {
				return err
			}
			for _, c := range it.Collect() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	var contextFlag string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the statements of a context or of the whole store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var context rdf.Term
			if contextFlag != "" {
				var err error
				if context, err = parseContext(contextFlag); err != nil {
					return err
				}
			}

			s, err := rootOpts.openStore(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.Len(context)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.Flags().StringVar(&contextFlag, "context", "", "context IRI or _:label")
	return cmd
}

// NewNamespacesCommand creates the namespaces command.
func NewNamespacesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List namespace bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			it, err := s.Namespaces()
			if err != nil {
				return err
			}
			namespaces, err := it.Collect()
			if err != nil {
				return err
			}
			for _, ns := range namespaces {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ns.Prefix, ns.URI)
			}
			return nil
		},
	}
}

// NewBindCommand creates the bind command.
func NewBindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bind <prefix> <uri>",
		Short: "Bind a namespace prefix",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Bind(args[0], args[1])
		},
	}
}

// NewRemoveContextCommand creates the remove-context command.
func NewRemoveContextCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-context <context>",
		Short: "Remove a context and its statements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			context, err := parseContext(args[0])
			if err != nil {
				return err
			}

			s, err := rootOpts.openStore(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.RemoveContext(context)
		},
	}
}

// NewDestroyCommand creates the destroy command.
func NewDestroyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy",
		Short: "Delete every statement and context of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Destroy(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "destroyed store %q\n", s.Identifier())
			return nil
		},
	}
}
