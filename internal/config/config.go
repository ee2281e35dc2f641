package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Bridge BridgeConfig `yaml:"bridge"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token"`
	MaxConnections int      `yaml:"max_connections"` // 0 = unlimited
}

type BridgeConfig struct {
	// TransientBackoff delays reconnect after an ordinary connection loss.
	TransientBackoff time.Duration `yaml:"transient_backoff"`
	// TerminalBackoff delays the re-pairing restart after logout/teardown.
	TerminalBackoff time.Duration `yaml:"terminal_backoff"`
	// StartupBackoff delays retry when the session fails to start at all.
	StartupBackoff time.Duration `yaml:"startup_backoff"`
	// PingInterval paces per-observer websocket keepalive pings.
	PingInterval time.Duration `yaml:"ping_interval"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Bridge: BridgeConfig{
			TransientBackoff: 5 * time.Second,
			TerminalBackoff:  time.Second,
			StartupBackoff:   10 * time.Second,
			PingInterval:     30 * time.Second,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
