// Package doctor provides health checks for a migration ledger and the
// migration files next to it.
//
// The doctor command validates that the ledger parses, that its names are
// unique and well formed, and that the ledger and the directory agree on
// which migrations exist.
//
// Example usage:
//
//	d := doctor.New(ledger.NewFileStore("migrations/migrations.json"))
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pthm/migledger/pkg/allocator"
	"github.com/pthm/migledger/pkg/ledger"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

func (s Status) color() lipgloss.Color {
	switch s {
	case StatusPass:
		return lipgloss.Color("2")
	case StatusWarn:
		return lipgloss.Color("3")
	case StatusFail:
		return lipgloss.Color("1")
	default:
		return lipgloss.Color("8")
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Ledger", "Migration Files").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Check returns the first result with the given name.
func (r *Report) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Print writes the report to the given writer. Symbols are colored only
// when w is a terminal.
func (r *Report) Print(w io.Writer, verbose bool) {
	renderer := lipgloss.NewRenderer(w)

	// Group checks by category
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			symbol := renderer.NewStyle().Foreground(check.Status.color()).Render(check.Status.Symbol())
			_, _ = fmt.Fprintf(w, "  %s %s\n", symbol, check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks on a ledger and its migration directory.
type Doctor struct {
	store ledger.Store
	dir   string

	// Loaded by checkLedger for the checks that follow.
	ledger ledger.Ledger
}

// New creates a new Doctor instance.
func New(store ledger.Store) *Doctor {
	return &Doctor{
		store: store,
		dir:   filepath.Dir(store.Path()),
	}
}

// Run executes all health checks and returns a report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ok, err := d.checkLedger(report)
	if err != nil {
		return nil, fmt.Errorf("checking ledger: %w", err)
	}
	if !ok {
		return report, nil
	}

	if err := d.checkFiles(report); err != nil {
		return nil, fmt.Errorf("checking migration files: %w", err)
	}
	d.checkRecords(report)

	return report, nil
}

// checkLedger loads the ledger and validates its names. It returns false
// when the ledger is unreadable and later checks cannot run.
func (d *Doctor) checkLedger(report *Report) (bool, error) {
	path := d.store.Path()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		report.AddCheck(CheckResult{
			Category: "Ledger",
			Name:     "exists",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Ledger not found at %s", path),
			Details:  "An empty ledger is assumed",
			FixHint:  "Run 'migledger new' to allocate the first migration",
		})
	} else if err != nil {
		return false, err
	} else {
		report.AddCheck(CheckResult{
			Category: "Ledger",
			Name:     "exists",
			Status:   StatusPass,
			Message:  fmt.Sprintf("Ledger exists at %s", path),
		})
	}

	l, err := d.store.Load()
	if ledger.IsCorruptErr(err) {
		report.AddCheck(CheckResult{
			Category: "Ledger",
			Name:     "valid",
			Status:   StatusFail,
			Message:  "Ledger is not valid JSON",
			Details:  err.Error(),
			FixHint:  "Repair the file by hand; it must be a JSON array of {name, updated, description}",
		})
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.ledger = l

	report.AddCheck(CheckResult{
		Category: "Ledger",
		Name:     "valid",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Ledger is valid (%d records)", len(l)),
	})

	if dups := l.Duplicates(); len(dups) > 0 {
		report.AddCheck(CheckResult{
			Category: "Ledger",
			Name:     "unique",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d names appear more than once", len(dups)),
			Details:  strings.Join(dups, "\n"),
			FixHint:  "Remove or rename the duplicated records in the ledger",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Ledger",
			Name:     "unique",
			Status:   StatusPass,
			Message:  "All names are unique",
		})
	}

	var malformed []string
	for _, r := range l {
		if !allocator.ValidName(r.Name) {
			malformed = append(malformed, r.Name)
		}
	}
	if len(malformed) > 0 {
		report.AddCheck(CheckResult{
			Category: "Ledger",
			Name:     "names",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d names do not match YYYYMMDD_<fragment>", len(malformed)),
			Details:  strings.Join(malformed, "\n"),
			FixHint:  "Names should be allocated with 'migledger new'",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Ledger",
			Name:     "names",
			Status:   StatusPass,
			Message:  "All names are well formed",
		})
	}

	return true, nil
}

// checkFiles compares the ledger against the .sql files in the directory.
func (d *Doctor) checkFiles(report *Report) error {
	files, err := d.scanFiles()
	if err != nil {
		return err
	}

	var missing []string
	for _, r := range d.ledger {
		if _, ok := files[r.Name]; !ok {
			missing = append(missing, r.Name)
		}
	}
	if len(missing) > 0 {
		report.AddCheck(CheckResult{
			Category: "Migration Files",
			Name:     "present",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d ledger records have no migration file", len(missing)),
			Details:  strings.Join(missing, "\n"),
			FixHint:  fmt.Sprintf("Restore the files in %s or remove the records", d.dir),
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Migration Files",
			Name:     "present",
			Status:   StatusPass,
			Message:  "Every ledger record has a migration file",
		})
	}

	var orphans []string
	for name := range files {
		if !d.ledger.Contains(name) {
			orphans = append(orphans, name+allocator.FileExt)
		}
	}
	sort.Strings(orphans)
	if len(orphans) > 0 {
		report.AddCheck(CheckResult{
			Category: "Migration Files",
			Name:     "recorded",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d migration files are not in the ledger", len(orphans)),
			Details:  strings.Join(orphans, "\n"),
			FixHint:  "Add records for these files or move them out of the migration directory",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Migration Files",
			Name:     "recorded",
			Status:   StatusPass,
			Message:  "Every migration file is in the ledger",
		})
	}

	var badHeaders []string
	for _, r := range d.ledger {
		path, ok := files[r.Name]
		if !ok {
			continue
		}
		line, err := firstLine(path)
		if err != nil {
			return err
		}
		if line != allocator.Header(r.Name) {
			badHeaders = append(badHeaders, fmt.Sprintf("%s: %q", filepath.Base(path), line))
		}
	}
	if len(badHeaders) > 0 {
		report.AddCheck(CheckResult{
			Category: "Migration Files",
			Name:     "headers",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d migration files do not start with their name comment", len(badHeaders)),
			Details:  strings.Join(badHeaders, "\n"),
			FixHint:  "Keep '-- <name>' as the first line of each migration",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Migration Files",
			Name:     "headers",
			Status:   StatusPass,
			Message:  "Migration file headers match their names",
		})
	}

	return nil
}

// checkRecords reports how many migrations tooling has not marked updated.
func (d *Doctor) checkRecords(report *Report) {
	pending := d.ledger.Pending()
	report.AddCheck(CheckResult{
		Category: "Records",
		Name:     "pending",
		Status:   StatusPass,
		Message:  fmt.Sprintf("%d of %d migrations not yet marked updated", len(pending), len(d.ledger)),
		Details:  strings.Join(pending.Names(), "\n"),
	})
}

// scanFiles maps migration names to .sql file paths in the directory.
func (d *Doctor) scanFiles() (map[string]string, error) {
	files := make(map[string]string)

	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return files, nil
	}
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != allocator.FileExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), allocator.FileExt)
		files[name] = filepath.Join(d.dir, e.Name())
	}
	return files, nil
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	return "", scanner.Err()
}
