package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pthm/migledger/internal/cli"
	"github.com/pthm/migledger/pkg/allocator"
)

var newCmd = &cobra.Command{
	Use:   "new [slug] [description]",
	Short: "Allocate a new migration",
	Long: `Allocate a unique migration name, record it in the ledger and create an
empty <name>.sql file next to the ledger.

The name is <YYYYMMDD>_<slug> using today's UTC date. The slug is lower-cased
and every character outside [A-Za-z0-9_-] becomes "_". Without a slug a random
8-digit suffix is used instead.

With --quiet only the allocated name is printed.`,
	Example: `  # Allocate a named migration
  migledger new init_schema "first migration"

  # Allocate a migration with a random suffix
  migledger new

  # Capture the name in a script
  name=$(migledger new -q add_users)`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req allocator.Request
		if len(args) > 0 {
			req.Slug = args[0]
		}
		if len(args) > 1 {
			req.Description = args[1]
		}

		return runNew(cmd.Context(), cmd.OutOrStdout(), req)
	},
}

func runNew(ctx context.Context, w io.Writer, req allocator.Request) error {
	a := allocator.New(openStore(),
		allocator.WithMaxAttempts(cfg.MaxAttempts),
		allocator.WithLogger(logger),
	)

	res, err := a.Allocate(ctx, req)
	if err != nil {
		return cli.Classify("allocating migration", err)
	}

	if quiet {
		_, _ = fmt.Fprintln(w, res.Name)
		return nil
	}

	_, _ = fmt.Fprintf(w, "Created migration %s\n", res.Name)
	_, _ = fmt.Fprintf(w, "  file: %s\n", res.Path)
	if res.HasDescription {
		_, _ = fmt.Fprintf(w, "  description: %s\n", res.Description)
	}
	return nil
}
