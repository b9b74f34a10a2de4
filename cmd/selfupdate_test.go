package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfUpdateCmd(t *testing.T) {
	cmd := newSelfUpdateCmd()
	assert.Equal(t, "self-update", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("check"))

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Checks GitHub for the latest xcmcp release")
}

func TestIsDevelopmentVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"", true},
		{"dev", true},
		{"(devel)", true},
		{"1.4.0-dirty", true},
		{"1.4.0", false},
		{"v2.0.0-rc.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, isDevelopmentVersion(tt.version))
		})
	}
}

func TestRunSelfUpdate_RefusesDevelopmentBuilds(t *testing.T) {
	for _, v := range []string{"", "dev"} {
		var buf bytes.Buffer
		err := runSelfUpdate(context.Background(), &buf, v, &selfUpdateOptions{check: true})
		assert.ErrorIs(t, err, errDevelopmentVersion)
		assert.Empty(t, buf.String())
	}
}
