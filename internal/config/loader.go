package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"xcmcp/pkg/logging"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd
var osLookupEnv = os.LookupEnv

const (
	userConfigDir    = ".config/xcmcp"
	projectConfigDir = ".xcmcp"
	configFileName   = "config.yaml"
)

// Environment variables understood by LoadConfig.
const (
	EnvDynamicTools     = "XCMCP_DYNAMIC_TOOLS"
	EnvEnabledWorkflows = "XCMCP_ENABLED_WORKFLOWS"
	EnvDefinitionsDir   = "XCMCP_DEFINITIONS_DIR"
	EnvDebug            = "XCMCP_DEBUG"
)

// LoadConfig loads the xcmcp configuration by layering default, user and
// project settings, an optional explicit file and environment overrides.
func LoadConfig(explicitPath string) (XcmcpConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. User-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if config, err = overlayIfExists(config, userConfigPath); err != nil {
		return XcmcpConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	// 3. Project-specific configuration
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else if config, err = overlayIfExists(config, projectConfigPath); err != nil {
		return XcmcpConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	// 4. Explicit configuration file must exist
	if explicitPath != "" {
		explicitConfig, err := loadConfigFromFile(explicitPath)
		if err != nil {
			return XcmcpConfig{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
		config = mergeConfigs(config, explicitConfig)
	}

	// 5. Environment
	config, err = applyEnvironment(config)
	if err != nil {
		return XcmcpConfig{}, err
	}

	if err := config.Validate(); err != nil {
		return XcmcpConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func overlayIfExists(base XcmcpConfig, path string) (XcmcpConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return base, err
	}
	logging.Debug("Config", "Applied configuration from %s", path)
	return mergeConfigs(base, overlay), nil
}

// loadConfigFromFile loads an XcmcpConfig from a YAML file.
func loadConfigFromFile(filePath string) (XcmcpConfig, error) {
	var config XcmcpConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return XcmcpConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return XcmcpConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
// Zero values in overlay leave base untouched.
func mergeConfigs(base, overlay XcmcpConfig) XcmcpConfig {
	merged := base

	if overlay.Mode != "" {
		merged.Mode = overlay.Mode
	}
	if overlay.EnabledWorkflows != nil {
		merged.EnabledWorkflows = append([]string(nil), overlay.EnabledWorkflows...)
	}
	if overlay.DefinitionsDir != "" {
		merged.DefinitionsDir = overlay.DefinitionsDir
	}

	if overlay.Server.Transport != "" {
		merged.Server.Transport = overlay.Server.Transport
	}
	if overlay.Server.Host != "" {
		merged.Server.Host = overlay.Server.Host
	}
	if overlay.Server.Port != 0 {
		merged.Server.Port = overlay.Server.Port
	}

	if overlay.Discovery.MaxTokens != 0 {
		merged.Discovery.MaxTokens = overlay.Discovery.MaxTokens
	}

	if overlay.Logging.Level != "" {
		merged.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		merged.Logging.Format = overlay.Logging.Format
	}

	if overlay.Toolchain.Timeout != 0 {
		merged.Toolchain.Timeout = overlay.Toolchain.Timeout
	}
	if overlay.Toolchain.WorkingDir != "" {
		merged.Toolchain.WorkingDir = overlay.Toolchain.WorkingDir
	}

	return merged
}

func applyEnvironment(config XcmcpConfig) (XcmcpConfig, error) {
	if v, ok := osLookupEnv(EnvDynamicTools); ok && v != "" {
		dynamic, err := strconv.ParseBool(v)
		if err != nil {
			return config, fmt.Errorf("invalid %s value %q: %w", EnvDynamicTools, v, err)
		}
		if dynamic {
			config.Mode = ModeDynamic
		} else {
			config.Mode = ModeStatic
		}
	}
	if v, ok := osLookupEnv(EnvEnabledWorkflows); ok && strings.TrimSpace(v) != "" {
		config.EnabledWorkflows = SplitList(v)
	}
	if v, ok := osLookupEnv(EnvDefinitionsDir); ok && v != "" {
		config.DefinitionsDir = v
	}
	if v, ok := osLookupEnv(EnvDebug); ok && v != "" {
		if debug, err := strconv.ParseBool(v); err == nil && debug {
			config.Logging.Level = "debug"
		}
	}
	return config, nil
}

// SplitList splits a comma separated list, trimming blanks and empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c XcmcpConfig) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeStatic, ModeDynamic:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q (expected %q or %q)", c.Mode, ModeStatic, ModeDynamic))
	}
	switch c.Server.Transport {
	case TransportStdio, TransportSSE, TransportStreamableHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Server.Transport))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Discovery.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("discovery.maxTokens must be positive, got %d", c.Discovery.MaxTokens))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch logging.Format(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	if c.Toolchain.Timeout < 0 {
		errs = append(errs, fmt.Errorf("toolchain.timeout must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
