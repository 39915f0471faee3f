package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pthm/migledger/internal/cli"
	"github.com/pthm/migledger/internal/doctor"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Check that the ledger parses, its names are unique and the migration files match the ledger.`,
	Example: `  # Run health checks
  migledger doctor

  # Show the names behind each finding
  migledger doctor -v`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verboseFlag := resolveBool(cfg.Doctor.Verbose, verbose > 0)
		return runDoctor(cmd.Context(), cmd.OutOrStdout(), verboseFlag)
	},
}

func runDoctor(ctx context.Context, w io.Writer, verboseFlag bool) error {
	if !quiet {
		_, _ = fmt.Fprintln(w, "migledger doctor - Health Check")
	}

	d := doctor.New(openStore())
	report, err := d.Run(ctx)
	if err != nil {
		return cli.GeneralError("running doctor", err)
	}

	report.Print(w, verboseFlag)

	if report.HasErrors() {
		return cli.GeneralError("health checks failed", nil)
	}

	return nil
}
