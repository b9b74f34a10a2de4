package config

import "time"

const (
	DefaultHost               = "localhost"
	DefaultPort               = 8090
	DefaultDiscoveryMaxTokens = 200
	DefaultToolchainTimeout   = 30 * time.Minute
)

// GetDefaultConfig returns the configuration used when no file overrides it.
// By default the server runs in static mode over stdio.
func GetDefaultConfig() XcmcpConfig {
	return XcmcpConfig{
		Mode: ModeStatic,
		Server: ServerConfig{
			Transport: TransportStdio,
			Host:      DefaultHost,
			Port:      DefaultPort,
		},
		Discovery: DiscoveryConfig{
			MaxTokens: DefaultDiscoveryMaxTokens,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Toolchain: ToolchainConfig{
			Timeout: DefaultToolchainTimeout,
		},
	}
}
