// Package main provides a CLI for allocating SQL migration names.
//
// The CLI supports:
//   - new: Allocate a unique migration name and create its empty .sql file
//   - list: Show the records in the ledger
//   - mark: Set or clear a record's updated flag
//   - doctor: Check that the ledger and migration files agree
//
// The ledger is a JSON file (default migrations/migrations.json); migration
// files are created next to it as <YYYYMMDD>_<slug>.sql.
//
// Usage:
//
//	migledger [flags] <command>
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	Execute(ctx)
}
