package doctor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/migledger/pkg/allocator"
	"github.com/pthm/migledger/pkg/ledger"
)

type fixture struct {
	dir   string
	store *ledger.FileStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "migrations")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return &fixture{
		dir:   dir,
		store: ledger.NewFileStore(filepath.Join(dir, "migrations.json"), ledger.WithoutLock()),
	}
}

func (f *fixture) writeLedger(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.store.Path(), []byte(content), 0o644))
}

func (f *fixture) writeMigration(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name+allocator.FileExt), []byte(content), 0o644))
}

func (f *fixture) run(t *testing.T) *Report {
	t.Helper()
	report, err := New(f.store).Run(context.Background())
	require.NoError(t, err)
	return report
}

func requireCheck(t *testing.T, r *Report, name string, want Status) CheckResult {
	t.Helper()
	c, ok := r.Check(name)
	require.True(t, ok, "check %q not reported", name)
	assert.Equal(t, want, c.Status, "check %q: %s", name, c.Message)
	return c
}

func TestDoctor_Healthy(t *testing.T) {
	f := newFixture(t)
	f.writeLedger(t, `[
  {"name": "20240307_init_schema", "updated": true, "description": "first"},
  {"name": "20240308_00000042", "updated": false, "description": ""}
]`)
	f.writeMigration(t, "20240307_init_schema", "-- 20240307_init_schema\n\nCREATE TABLE users ();\n")
	f.writeMigration(t, "20240308_00000042", string(allocator.Stub("20240308_00000042")))

	r := f.run(t)
	assert.False(t, r.HasErrors())
	assert.Zero(t, r.Warnings)

	requireCheck(t, r, "exists", StatusPass)
	requireCheck(t, r, "valid", StatusPass)
	requireCheck(t, r, "unique", StatusPass)
	requireCheck(t, r, "names", StatusPass)
	requireCheck(t, r, "present", StatusPass)
	requireCheck(t, r, "recorded", StatusPass)
	requireCheck(t, r, "headers", StatusPass)

	pending := requireCheck(t, r, "pending", StatusPass)
	assert.Equal(t, "1 of 2 migrations not yet marked updated", pending.Message)
	assert.Equal(t, "20240308_00000042", pending.Details)
}

func TestDoctor_MissingLedger(t *testing.T) {
	f := newFixture(t)

	r := f.run(t)
	assert.False(t, r.HasErrors())
	requireCheck(t, r, "exists", StatusWarn)
	requireCheck(t, r, "valid", StatusPass)
}

func TestDoctor_CorruptLedger(t *testing.T) {
	f := newFixture(t)
	f.writeLedger(t, "{not json")

	r := f.run(t)
	assert.True(t, r.HasErrors())
	requireCheck(t, r, "valid", StatusFail)

	_, ok := r.Check("present")
	assert.False(t, ok, "file checks should not run on a corrupt ledger")
}

func TestDoctor_Duplicates(t *testing.T) {
	f := newFixture(t)
	f.writeLedger(t, `[
  {"name": "20240307_a", "updated": false, "description": ""},
  {"name": "20240307_a", "updated": false, "description": "again"}
]`)
	f.writeMigration(t, "20240307_a", "-- 20240307_a\n\n")

	r := f.run(t)
	assert.True(t, r.HasErrors())
	c := requireCheck(t, r, "unique", StatusFail)
	assert.Equal(t, "20240307_a", c.Details)
}

func TestDoctor_FileMismatches(t *testing.T) {
	f := newFixture(t)
	f.writeLedger(t, `[
  {"name": "20240307_missing", "updated": false, "description": ""},
  {"name": "20240307_renamed", "updated": false, "description": ""},
  {"name": "legacy", "updated": true, "description": ""}
]`)
	f.writeMigration(t, "20240307_renamed", "-- something else\n\n")
	f.writeMigration(t, "legacy", "-- legacy\n")
	f.writeMigration(t, "20240301_orphan", "-- 20240301_orphan\n\n")
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "notes.txt"), []byte("ignored"), 0o644))

	r := f.run(t)
	assert.True(t, r.HasErrors())

	missing := requireCheck(t, r, "present", StatusFail)
	assert.Equal(t, "20240307_missing", missing.Details)

	orphans := requireCheck(t, r, "recorded", StatusWarn)
	assert.Equal(t, "20240301_orphan.sql", orphans.Details)

	headers := requireCheck(t, r, "headers", StatusWarn)
	assert.Contains(t, headers.Details, "20240307_renamed.sql")

	names := requireCheck(t, r, "names", StatusWarn)
	assert.Equal(t, "legacy", names.Details)
}

func TestReportPrint(t *testing.T) {
	r := &Report{}
	r.AddCheck(CheckResult{Category: "Ledger", Name: "valid", Status: StatusPass, Message: "Ledger is valid (1 records)"})
	r.AddCheck(CheckResult{
		Category: "Migration Files",
		Name:     "present",
		Status:   StatusFail,
		Message:  "1 ledger records have no migration file",
		Details:  "20240307_missing",
		FixHint:  "Restore the files",
	})

	var quiet bytes.Buffer
	r.Print(&quiet, false)
	out := quiet.String()
	assert.Contains(t, out, "Ledger\n")
	assert.Contains(t, out, "✓ Ledger is valid (1 records)")
	assert.Contains(t, out, "✗ 1 ledger records have no migration file")
	assert.Contains(t, out, "Fix: Restore the files")
	assert.NotContains(t, out, "20240307_missing")
	assert.Contains(t, out, "Summary: 1 passed, 0 warnings, 1 errors")

	var verbose bytes.Buffer
	r.Print(&verbose, true)
	assert.Contains(t, verbose.String(), "      20240307_missing")
}

func TestDoctor_RerunSeesCurrentFiles(t *testing.T) {
	f := newFixture(t)
	f.writeLedger(t, `[{"name": "20240307_init_schema", "updated": false, "description": ""}]`)
	f.writeMigration(t, "20240307_init_schema", string(allocator.Stub("20240307_init_schema")))

	d := New(f.store)
	r, err := d.Run(context.Background())
	require.NoError(t, err)
	requireCheck(t, r, "present", StatusPass)

	require.NoError(t, os.Remove(filepath.Join(f.dir, "20240307_init_schema"+allocator.FileExt)))
	f.writeMigration(t, "20240308_stray", "-- 20240308_stray\n")

	r, err = d.Run(context.Background())
	require.NoError(t, err)
	requireCheck(t, r, "present", StatusFail)
	c := requireCheck(t, r, "recorded", StatusWarn)
	assert.Equal(t, "20240308_stray.sql", c.Details)
}
