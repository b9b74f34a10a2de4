package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "", want: LevelInfo},
		{in: "INFO", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "verbose", want: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInit_WritesSubsystem(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, FormatText, &buf)

	Info("Registry", "activated %d workflows", 2)
	Debug("Discovery", "debug line")

	out := buf.String()
	require.Contains(t, out, "activated 2 workflows")
	assert.Contains(t, out, "subsystem=Registry")
	assert.Contains(t, out, "debug line")
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, FormatJSON, &buf)

	Info("Registry", "filtered out")
	Warn("Registry", "kept")

	out := buf.String()
	assert.NotContains(t, out, "filtered out")
	assert.Contains(t, out, `"subsystem":"Registry"`)
	assert.Contains(t, out, `"msg":"kept"`)
}
