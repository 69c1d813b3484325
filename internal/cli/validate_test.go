package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boardConfig = filepath.Join("..", "config", "testdata", "board.yaml")

func TestValidateBoard(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{boardConfig})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "2 machine(s), period 50ms")
	assert.Contains(t, out, "leds: 4 operating state(s)")
}

func TestValidateBoardJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{boardConfig})
	require.NoError(t, cmd.Execute())

	var res ValidationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.True(t, res.Valid)
	assert.Equal(t, uint32(50), res.PeriodMs)
	assert.Equal(t, []string{"leds", "alarm"}, res.Machines)
}

func TestValidateInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("period: 0ms\n"), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.Error(t, cmd.Execute())
	var res ValidationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "at least 1ms")
}

func TestValidateMissingArg(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
