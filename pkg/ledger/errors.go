package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for ledger failures. Callers should match them with
// errors.Is; the concrete error usually carries more context.
var (
	// ErrCorrupt is returned when the ledger file exists but is not a JSON
	// array of migration records. Nothing is written when this happens.
	ErrCorrupt = errors.New("ledger: corrupt ledger file")

	// ErrDuplicate is returned when appending a record whose name is already
	// present in the ledger.
	ErrDuplicate = errors.New("ledger: duplicate migration name")

	// ErrNotFound is returned when a named record does not exist.
	ErrNotFound = errors.New("ledger: migration not found")

	// ErrLocked is returned when the ledger lock could not be acquired
	// before the lock timeout expired.
	ErrLocked = errors.New("ledger: ledger is locked by another process")
)

// CorruptError describes a ledger file that failed to parse.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("ledger %s is not valid JSON: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCorrupt.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// IsCorruptErr returns true if err is or wraps ErrCorrupt.
func IsCorruptErr(err error) bool {
	return errors.Is(err, ErrCorrupt)
}

// IsDuplicateErr returns true if err is or wraps ErrDuplicate.
func IsDuplicateErr(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsNotFoundErr returns true if err is or wraps ErrNotFound.
func IsNotFoundErr(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsLockedErr returns true if err is or wraps ErrLocked.
func IsLockedErr(err error) bool {
	return errors.Is(err, ErrLocked)
}
