package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"xcmcp/internal/catalog"
	"xcmcp/internal/config"
	"xcmcp/internal/discovery"
	"xcmcp/internal/mcpserver"
	"xcmcp/internal/toolexec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct{}

func (mockExecutor) Execute(ctx context.Context, cmd toolexec.Command) (toolexec.CommandResult, error) {
	return toolexec.CommandResult{}, nil
}

// isolate points the layered config lookup at empty directories.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, key := range []string{config.EnvDynamicTools, config.EnvEnabledWorkflows, config.EnvDefinitionsDir, config.EnvDebug} {
		t.Setenv(key, "")
	}
}

func TestConfig_LoadConfigAppliesOverrides(t *testing.T) {
	isolate(t)
	cfg := NewConfig("", true, "test")
	cfg.Mode = "dynamic"
	cfg.Transport = "sse"
	cfg.Port = 9000

	xcfg, err := cfg.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ModeDynamic, xcfg.Mode)
	assert.Equal(t, "sse", xcfg.Server.Transport)
	assert.Equal(t, 9000, xcfg.Server.Port)
	assert.Equal(t, "debug", xcfg.Logging.Level)
	require.NotNil(t, cfg.XcmcpConfig)
}

func TestConfig_LoadConfigRejectsInvalidOverride(t *testing.T) {
	isolate(t)
	cfg := NewConfig("", false, "test")
	cfg.Mode = "sometimes"
	_, err := cfg.LoadConfig()
	assert.ErrorContains(t, err, "unknown mode")
}

func TestPrepare_StaticMode(t *testing.T) {
	cfg := config.GetDefaultConfig()
	services, err := InitializeServices(cfg, "test", mockExecutor{})
	require.NoError(t, err)
	assert.Nil(t, services.Discoverer)

	app := &Application{config: NewConfig("", false, "test"), services: services}
	require.NoError(t, app.Prepare(context.Background()))

	assert.ElementsMatch(t, services.Catalog.WorkflowIDs(), services.Registry.EnabledWorkflows())
	names := services.Server.ToolNames()
	assert.Len(t, names, services.Catalog.ToolCount()+2)
	assert.Contains(t, names, mcpserver.ToolListWorkflows)
	assert.NotContains(t, names, discovery.ToolName)
}

func TestPrepare_DynamicMode(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Mode = config.ModeDynamic
	cfg.EnabledWorkflows = []string{"swift-package"}
	services, err := InitializeServices(cfg, "test", mockExecutor{})
	require.NoError(t, err)
	require.NotNil(t, services.Discoverer)

	app := &Application{config: NewConfig("", false, "test"), services: services}
	require.NoError(t, app.Prepare(context.Background()))

	assert.Equal(t, []string{"swift-package"}, services.Registry.EnabledWorkflows())
	names := services.Server.ToolNames()
	assert.Contains(t, names, discovery.ToolName)
	assert.Contains(t, names, mcpserver.ToolActivateWorkflows)
	assert.Contains(t, names, "swift_package_build")
	assert.NotContains(t, names, "build_sim")
}

func TestLoadCatalog_ReservedName(t *testing.T) {
	dir := t.TempDir()
	content := `workflows:
  - id: extras
    description: Extra tools
tools:
  - name: doctor
    workflow: extras
    description: Shadows the built-in
    command:
      program: echo
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extras.yaml"), []byte(content), 0o644))

	cfg := config.GetDefaultConfig()
	cfg.DefinitionsDir = dir
	_, err := LoadCatalog(cfg, mockExecutor{})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrInvalidDefinition)
	assert.Contains(t, err.Error(), "reserved")
}

func TestLoadCatalog_DefinitionsDir(t *testing.T) {
	dir := t.TempDir()
	content := `workflows:
  - id: fastlane
    name: Fastlane
    description: Run fastlane lanes
tools:
  - name: fastlane_lane
    workflow: fastlane
    description: Runs a lane
    command:
      program: fastlane
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fastlane.yaml"), []byte(content), 0o644))

	cfg := config.GetDefaultConfig()
	cfg.DefinitionsDir = dir
	cat, err := LoadCatalog(cfg, mockExecutor{})
	require.NoError(t, err)
	assert.True(t, cat.HasWorkflow("fastlane"))
	assert.True(t, cat.HasWorkflow("simulator"), "builtin workflows stay loaded")
}
