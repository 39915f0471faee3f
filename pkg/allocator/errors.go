package allocator

import (
	"errors"
	"fmt"
)

// Sentinel errors for aborted allocations. None of them leave anything
// written.
var (
	// ErrNameTaken is returned when a slug-derived name is already in the
	// ledger.
	ErrNameTaken = errors.New("allocator: migration name already exists")

	// ErrNameExhausted is returned when every random suffix drawn collided
	// with the ledger.
	ErrNameExhausted = errors.New("allocator: could not generate unique name")

	// ErrFileExists is returned when the migration file for a candidate
	// name is already on disk.
	ErrFileExists = errors.New("allocator: migration file already exists")
)

// ExhaustedError reports how many random suffixes were tried.
type ExhaustedError struct {
	Prefix   string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("could not generate unique name for %s after %d attempts", e.Prefix, e.Attempts)
}

// Is reports whether target is ErrNameExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrNameExhausted
}

// FileExistsError carries the path of the colliding migration file.
type FileExistsError struct {
	Path string
}

func (e *FileExistsError) Error() string {
	return fmt.Sprintf("file already exists: %s", e.Path)
}

// Is reports whether target is ErrFileExists.
func (e *FileExistsError) Is(target error) bool {
	return target == ErrFileExists
}

// IsConflictErr returns true if err means the allocation lost a name
// collision of any kind.
func IsConflictErr(err error) bool {
	return errors.Is(err, ErrNameTaken) ||
		errors.Is(err, ErrNameExhausted) ||
		errors.Is(err, ErrFileExists)
}
