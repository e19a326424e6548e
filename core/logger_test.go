package core

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeLogger(t *testing.T, debug bool) (*ProductionLogger, *bufio.Reader) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { w.Close(); r.Close() })
	return &ProductionLogger{out: w, debug: debug}, bufio.NewReader(r)
}

func readJSONLine(t *testing.T, r *bufio.Reader) map[string]interface{} {
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestProductionLogger_InfoEmitsLevelAndMessageAndFields(t *testing.T) {
	l, r := newPipeLogger(t, false)

	l.Info("investigation started", map[string]interface{}{"investigation_id": "inv-1"})

	entry := readJSONLine(t, r)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "investigation started", entry["message"])
	assert.Equal(t, "inv-1", entry["investigation_id"])
}

func TestProductionLogger_DebugSuppressedWhenDebugDisabled(t *testing.T) {
	l, r := newPipeLogger(t, false)

	l.Debug("verbose detail", nil)
	l.Info("sentinel", nil)

	entry := readJSONLine(t, r)
	assert.Equal(t, "sentinel", entry["message"])
}

func TestProductionLogger_DebugEmittedWhenDebugEnabled(t *testing.T) {
	l, r := newPipeLogger(t, true)

	l.Debug("verbose detail", nil)

	entry := readJSONLine(t, r)
	assert.Equal(t, "debug", entry["level"])
}

func TestProductionLogger_WithComponentTagsSubsequentRecords(t *testing.T) {
	l, r := newPipeLogger(t, false)
	scoped := l.WithComponent("framework/router")

	scoped.Info("dispatching", nil)

	entry := readJSONLine(t, r)
	assert.Equal(t, "framework/router", entry["component"])
}

func TestNoOpLogger_WithComponentReturnsItself(t *testing.T) {
	n := NoOpLogger{}

	assert.Equal(t, n, n.WithComponent("anything"))
}
