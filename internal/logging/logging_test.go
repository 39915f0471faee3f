package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Config{Level: "info", Format: "json"})
	require.NoError(t, err)

	log.Info("migration allocated", zap.String("name", "20240307_x"))
	log.Debug("hidden")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "migration allocated", entry["msg"])
	assert.Equal(t, "20240307_x", entry["name"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Config{Level: "debug"})
	require.NoError(t, err)

	log.Debug("ledger loaded")
	assert.Contains(t, buf.String(), "ledger loaded")
}

func TestNew_ErrorLevelSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	log.Info("quiet please")
	log.Warn("still quiet")
	assert.Empty(t, buf.String())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, Config{Format: "xml"})
	assert.Error(t, err)
}
