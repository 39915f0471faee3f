// Package allocator hands out unique migration names and scaffolds their
// SQL files.
//
// A name is "<YYYYMMDD>_<fragment>" where the date is the current UTC
// calendar day and the fragment is either a normalized slug or an
// 8-digit random number. A name is only allocated when neither the ledger
// nor the migration directory already knows it.
//
// Example usage:
//
//	store := ledger.NewFileStore("migrations/migrations.json")
//	a := allocator.New(store)
//	res, err := a.Allocate(ctx, allocator.Request{Slug: "init_schema"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.Path) // migrations/20240307_init_schema.sql
package allocator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pthm/migledger/pkg/ledger"
)

const (
	// DefaultMaxAttempts is how many random suffixes are drawn before
	// giving up on an unslugged name.
	DefaultMaxAttempts = 10

	// suffixSpace bounds the random suffix to 8 decimal digits.
	suffixSpace = 100_000_000
)

// Rand is the random source for name suffixes. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// globalRand draws from the math/rand/v2 top-level source.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Request describes one allocation. Both fields are optional.
type Request struct {
	Slug        string
	Description string
}

// Result is a successful allocation.
type Result struct {
	Name           string
	Path           string
	Description    string
	HasDescription bool
}

// Allocator allocates migration names against a ledger store. The
// migration files live in the same directory as the ledger.
type Allocator struct {
	store       ledger.Store
	dir         string
	clock       clock.Clock
	rand        Rand
	maxAttempts int
	log         *zap.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock sets the time source used for the date prefix.
func WithClock(c clock.Clock) Option {
	return func(a *Allocator) { a.clock = c }
}

// WithRand sets the random source used for name suffixes.
func WithRand(r Rand) Option {
	return func(a *Allocator) { a.rand = r }
}

// WithMaxAttempts sets the random suffix retry bound. Values below 1 are
// ignored.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Allocator) {
		if log != nil {
			a.log = log
		}
	}
}

// New returns an Allocator writing migration files next to the store's
// ledger.
func New(store ledger.Store, opts ...Option) *Allocator {
	a := &Allocator{
		store:       store,
		dir:         filepath.Dir(store.Path()),
		clock:       clock.New(),
		rand:        globalRand{},
		maxAttempts: DefaultMaxAttempts,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dir returns the migration directory.
func (a *Allocator) Dir() string {
	return a.dir
}

// Allocate picks a unique name, records it in the ledger and creates the
// empty migration file.
//
// Every check runs before anything is written: a corrupt ledger, a taken
// name, exhausted retries or an existing file all return an error with the
// ledger and the directory unchanged.
func (a *Allocator) Allocate(ctx context.Context, req Request) (*Result, error) {
	prefix := DatePrefix(a.clock.Now())

	var name, path string
	err := a.store.Update(ctx, func(l *ledger.Ledger) error {
		candidate, err := a.pickName(*l, prefix, req.Slug)
		if err != nil {
			return err
		}

		target := filepath.Join(a.dir, candidate+FileExt)
		if _, err := os.Stat(target); err == nil {
			return &FileExistsError{Path: target}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking migration file: %w", err)
		}

		if err := l.Append(ledger.Record{Name: candidate, Description: req.Description}); err != nil {
			return err
		}
		name, path = candidate, target
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := writeStub(path, name); err != nil {
		return nil, fmt.Errorf("ledger records %s but creating its file failed: %w", name, err)
	}

	a.log.Debug("migration allocated",
		zap.String("name", name),
		zap.String("path", path),
		zap.Bool("has_description", req.Description != ""))

	return &Result{
		Name:           name,
		Path:           path,
		Description:    req.Description,
		HasDescription: req.Description != "",
	}, nil
}

// pickName returns the candidate name for prefix. Slugged names must not be
// in l; random names are redrawn up to maxAttempts times.
func (a *Allocator) pickName(l ledger.Ledger, prefix, slug string) (string, error) {
	if slug != "" {
		name := prefix + "_" + Slugify(slug)
		if l.Contains(name) {
			return "", fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
		return name, nil
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		name := fmt.Sprintf("%s_%08d", prefix, a.rand.IntN(suffixSpace))
		if !l.Contains(name) {
			return name, nil
		}
		a.log.Debug("random name collided", zap.String("name", name), zap.Int("attempt", attempt))
	}
	return "", &ExhaustedError{Prefix: prefix, Attempts: a.maxAttempts}
}

func writeStub(path, name string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &FileExistsError{Path: path}
		}
		return err
	}
	if _, err := f.Write(Stub(name)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
