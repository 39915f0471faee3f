package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/pthm/migledger/internal/cli"
	"github.com/pthm/migledger/pkg/ledger"
)

var (
	listOutput  string
	listPending bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger records",
	Long:  `List the migrations recorded in the ledger, in allocation order.`,
	Example: `  # Show all migrations
  migledger list

  # Show migrations not yet marked updated, as JSON
  migledger list --pending --output json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output := resolveString(listOutput, cfg.List.Output)
		return runList(cmd.OutOrStdout(), output, listPending)
	},
}

func init() {
	f := listCmd.Flags()
	f.StringVarP(&listOutput, "output", "o", "", "output format: table, json or yaml")
	f.BoolVar(&listPending, "pending", false, "only show records not yet marked updated")
}

func runList(w io.Writer, output string, pendingOnly bool) error {
	l, err := openStore().Load()
	if err != nil {
		return cli.Classify("loading ledger", err)
	}
	if pendingOnly {
		l = l.Pending()
	}
	if l == nil {
		l = ledger.Ledger{}
	}

	switch output {
	case "table", "":
		return printTable(w, l)
	case "json":
		out, err := json.MarshalIndent(l, "", "  ")
		if err != nil {
			return cli.GeneralError("encoding ledger", err)
		}
		_, _ = fmt.Fprintln(w, string(out))
		return nil
	case "yaml":
		out, err := yaml.Marshal(l)
		if err != nil {
			return cli.GeneralError("encoding ledger", err)
		}
		_, _ = fmt.Fprint(w, string(out))
		return nil
	default:
		return cli.ConfigError(fmt.Sprintf("unknown output format %q (use table, json or yaml)", output), nil)
	}
}

func printTable(w io.Writer, l ledger.Ledger) error {
	if len(l) == 0 {
		_, _ = fmt.Fprintln(w, "No migrations recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tUPDATED\tDESCRIPTION")
	for _, r := range l {
		_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\n", r.Name, r.Updated, r.Description)
	}
	return tw.Flush()
}
