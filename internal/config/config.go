// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath          = "config.toml"
	DefaultHTTPAddr            = ":5173"
	DefaultWebDir              = "web"
	DefaultHeartbeatIntervalMS = 30000
	DefaultHeartbeatGraceMS    = 15000
	DefaultBroadcastWorkers    = 8
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Discord DiscordConfig `toml:"discord"`
	Gateway GatewayConfig `toml:"gateway"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address and the static web directory.
type ServerConfig struct {
	Addr   string `toml:"addr"`
	WebDir string `toml:"web_dir"`
}

// DiscordConfig holds the bot token used to open the gateway session.
type DiscordConfig struct {
	Token string `toml:"token"`
}

// GatewayConfig holds the subscriber protocol timings and fan-out pool size.
type GatewayConfig struct {
	HeartbeatIntervalMS int `toml:"heartbeat_interval_ms"`
	HeartbeatGraceMS    int `toml:"heartbeat_grace_ms"`
	BroadcastWorkers    int `toml:"broadcast_workers"`
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:   DefaultHTTPAddr,
			WebDir: DefaultWebDir,
		},
		Gateway: GatewayConfig{
			HeartbeatIntervalMS: DefaultHeartbeatIntervalMS,
			HeartbeatGraceMS:    DefaultHeartbeatGraceMS,
			BroadcastWorkers:    DefaultBroadcastWorkers,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
