package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLevel tests level string mapping
func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Level
	}{
		{name: "debug", input: "debug", want: DebugLevel},
		{name: "warn", input: "warn", want: WarnLevel},
		{name: "error", input: "error", want: ErrorLevel},
		{name: "unknown falls back to info", input: "verbose", want: InfoLevel},
		{name: "empty falls back to info", input: "", want: InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

// TestSourceLogger tests that source fields are attached to JSON output
func TestSourceLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})
	t.Cleanup(func() { Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}}) })

	src := NewSource("dns.pool")
	require.False(t, src.IsZero())

	logger := src.Logger("dns.pool")
	logger.Info().Msg("allocated")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dns.pool", line["component"])
	assert.Equal(t, src.ID, line["source_id"])
	assert.Equal(t, "dns.pool", line["source_type"])
	assert.Equal(t, "allocated", line["message"])
}

// TestZeroSourceLogger tests that an unassigned source adds no id fields
func TestZeroSourceLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})
	t.Cleanup(func() { Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}}) })

	var src Source
	assert.True(t, src.IsZero())

	logger := src.Logger("mdns")
	logger.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "mdns", line["component"])
	_, ok := line["source_id"]
	assert.False(t, ok)
}

// TestHelpers tests the global Info and Errorf helpers
func TestHelpers(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})
	t.Cleanup(func() { Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}}) })

	Info("Stopping mDNS client")
	Errorf("HTTP server failed", errors.New("address in use"))

	dec := json.NewDecoder(&buf)
	var info, failure map[string]any
	require.NoError(t, dec.Decode(&info))
	require.NoError(t, dec.Decode(&failure))

	assert.Equal(t, "info", info["level"])
	assert.Equal(t, "Stopping mDNS client", info["message"])
	assert.Equal(t, "error", failure["level"])
	assert.Equal(t, "HTTP server failed", failure["message"])
	assert.Equal(t, "address in use", failure["error"])
}
