// Package cli provides shared configuration and utilities for the migledger CLI.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pthm/migledger/pkg/allocator"
	"github.com/pthm/migledger/pkg/ledger"
)

// Exit codes.
const (
	ExitSuccess  = 0
	ExitGeneral  = 1
	ExitConfig   = 2
	ExitCorrupt  = 3
	ExitConflict = 4
	ExitLocked   = 5
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	os.Exit(PrintError(os.Stderr, err))
}

// PrintError writes err to w and returns the exit code it maps to.
func PrintError(w io.Writer, err error) int {
	_, _ = fmt.Fprintln(w, "Error:", err)
	return ExitCode(err)
}

// ExitCode returns the exit code carried by err, or ExitGeneral.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneral
}

// Classify maps a ledger or allocator error to an ExitError.
func Classify(msg string, err error) *ExitError {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitErr
	case ledger.IsCorruptErr(err):
		return &ExitError{Code: ExitCorrupt, Message: msg, Err: err}
	case ledger.IsLockedErr(err):
		return &ExitError{Code: ExitLocked, Message: msg, Err: err}
	case allocator.IsConflictErr(err), ledger.IsDuplicateErr(err):
		return &ExitError{Code: ExitConflict, Message: msg, Err: err}
	default:
		return GeneralError(msg, err)
	}
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}
