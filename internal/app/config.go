package app

import (
	"xcmcp/internal/config"
)

// Config holds the command line settings. Non-zero values override the
// layered configuration file settings.
type Config struct {
	ConfigPath string
	Debug      bool

	Mode      string
	Transport string
	Port      int

	Version string

	// Resolved configuration, filled by LoadConfig.
	XcmcpConfig *config.XcmcpConfig
}

// NewConfig creates a new application configuration
func NewConfig(configPath string, debug bool, version string) *Config {
	return &Config{
		ConfigPath: configPath,
		Debug:      debug,
		Version:    version,
	}
}

// LoadConfig resolves the layered configuration and applies command line
// overrides on top.
func (c *Config) LoadConfig() (config.XcmcpConfig, error) {
	cfg, err := config.LoadConfig(c.ConfigPath)
	if err != nil {
		return config.XcmcpConfig{}, err
	}
	if c.Mode != "" {
		cfg.Mode = config.Mode(c.Mode)
	}
	if c.Transport != "" {
		cfg.Server.Transport = c.Transport
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.XcmcpConfig{}, err
	}
	c.XcmcpConfig = &cfg
	return cfg, nil
}
