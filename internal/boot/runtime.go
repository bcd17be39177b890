// Package boot provides runtime configuration and dependency wiring.
package boot

import (
	"errors"
	"os"
	"time"

	"github.com/vorlie/presenceexpose/internal/config"
)

// RuntimeConfig holds parsed runtime settings. Values may be overridden by
// environment variables (DISCORD_TOKEN, HTTP_ADDR).
type RuntimeConfig struct {
	DiscordToken      string
	ServerAddr        string
	WebDir            string
	HeartbeatInterval time.Duration
	HeartbeatGrace    time.Duration
	BroadcastWorkers  int
}

// ProvideRuntimeConfig builds RuntimeConfig from the given config and applies
// env overrides.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	ret := &RuntimeConfig{
		DiscordToken:      cfg.Discord.Token,
		ServerAddr:        cfg.Server.Addr,
		WebDir:            cfg.Server.WebDir,
		HeartbeatInterval: time.Duration(cfg.Gateway.HeartbeatIntervalMS) * time.Millisecond,
		HeartbeatGrace:    time.Duration(cfg.Gateway.HeartbeatGraceMS) * time.Millisecond,
		BroadcastWorkers:  cfg.Gateway.BroadcastWorkers,
	}

	if value := os.Getenv("DISCORD_TOKEN"); value != "" {
		ret.DiscordToken = value
	}
	if value := os.Getenv("HTTP_ADDR"); value != "" {
		ret.ServerAddr = value
	}

	if ret.DiscordToken == "" {
		return nil, errors.New("discord token is required")
	}
	if ret.HeartbeatInterval <= 0 {
		ret.HeartbeatInterval = time.Duration(config.DefaultHeartbeatIntervalMS) * time.Millisecond
	}
	if ret.HeartbeatGrace <= 0 {
		ret.HeartbeatGrace = time.Duration(config.DefaultHeartbeatGraceMS) * time.Millisecond
	}
	return ret, nil
}
