package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pthm/migledger/internal/cli"
	"github.com/pthm/migledger/pkg/ledger"
)

var markUnset bool

var markCmd = &cobra.Command{
	Use:   "mark <name>",
	Short: "Set a record's updated flag",
	Long: `Set the updated flag of a ledger record. Tooling that applies migrations
uses the flag to remember which ones it has run; migledger new always records
updated=false.`,
	Example: `  # Mark a migration as applied
  migledger mark 20240307_init_schema

  # Clear the flag again
  migledger mark 20240307_init_schema --unset`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMark(cmd.Context(), cmd.OutOrStdout(), args[0], !markUnset)
	},
}

func init() {
	markCmd.Flags().BoolVar(&markUnset, "unset", false, "set updated=false instead of true")
}

func runMark(ctx context.Context, w io.Writer, name string, updated bool) error {
	err := openStore().Update(ctx, func(l *ledger.Ledger) error {
		return l.SetUpdated(name, updated)
	})
	if err != nil {
		return cli.Classify("marking migration", err)
	}

	if !quiet {
		_, _ = fmt.Fprintf(w, "Marked %s updated=%t\n", name, updated)
	}
	return nil
}
