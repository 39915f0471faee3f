package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pthm/migledger/pkg/allocator"
	"github.com/pthm/migledger/pkg/ledger"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "corrupt", err: &ledger.CorruptError{Path: "x.json", Err: errors.New("bad")}, want: ExitCorrupt},
		{name: "locked", err: fmt.Errorf("%w: x.json.lock", ledger.ErrLocked), want: ExitLocked},
		{name: "name taken", err: fmt.Errorf("%w: 20240307_a", allocator.ErrNameTaken), want: ExitConflict},
		{name: "exhausted", err: &allocator.ExhaustedError{Prefix: "20240307", Attempts: 10}, want: ExitConflict},
		{name: "file exists", err: &allocator.FileExistsError{Path: "a.sql"}, want: ExitConflict},
		{name: "duplicate", err: fmt.Errorf("%w: a", ledger.ErrDuplicate), want: ExitConflict},
		{name: "other", err: errors.New("disk full"), want: ExitGeneral},
		{name: "already classified", err: ConfigError("bad config", nil), want: ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("allocating migration", tt.err)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.want, ExitCode(fmt.Errorf("wrapped: %w", got)))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	err := GeneralError("allocating migration", &allocator.FileExistsError{Path: "m/a.sql"})
	assert.Equal(t, "allocating migration: file already exists: m/a.sql", err.Error())
	assert.True(t, errors.Is(err, allocator.ErrFileExists))

	assert.Equal(t, "no ledger", GeneralError("no ledger", nil).Error())
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	code := PrintError(&buf, ConfigError("loading configuration", errors.New("bad yaml")))
	assert.Equal(t, ExitConfig, code)
	assert.Equal(t, "Error: loading configuration: bad yaml\n", buf.String())

	assert.Equal(t, ExitSuccess, ExitCode(nil))
}
