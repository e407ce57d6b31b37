package config

// loader.go - configuration loading from the config file and the
// environment.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. Config file (~/.goicb/config.toml)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	goicberr "goicb/internal/errors"
)

// fileConfig is the TOML schema of ~/.goicb/config.toml.  Pointer
// fields distinguish "absent" from zero values.
type fileConfig struct {
	Nick            string `toml:"nick"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Room            string `toml:"room"`
	Timeout         int    `toml:"timeout"` // seconds
	MaxPings        int    `toml:"max_pings"`
	Retries         int    `toml:"retries"`
	History         *bool  `toml:"history"`
	HistoryDir      string `toml:"history_dir"`
	ExtendedPackets bool   `toml:"extended_packets"`

	Tunnel        string `toml:"tunnel"` // [user@]host[:port]
	SSHKey        string `toml:"ssh_key"`
	SSHAgent      bool   `toml:"ssh_agent"`
	StrictHostKey bool   `toml:"strict_hostkey"`
	KnownHosts    string `toml:"known_hosts"`
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".goicb", "config.toml"), nil
}

// LoadFile overlays the TOML config file at path onto cfg.  A missing
// file is not an error; a malformed one is.
func LoadFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return &goicberr.ConfigError{
			Field:   "config file",
			Value:   path,
			Message: err.Error(),
		}
	}

	if fc.Nick != "" {
		cfg.Nick = fc.Nick
	}
	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.Port > 0 {
		cfg.Port = fc.Port
	}
	if fc.Room != "" {
		cfg.Room = fc.Room
	}
	if fc.Timeout > 0 {
		cfg.NetTimeout = secondsDuration(fc.Timeout)
	}
	if fc.MaxPings > 0 {
		cfg.MaxPings = fc.MaxPings
	}
	if fc.Retries > 0 {
		cfg.ConnectRetries = fc.Retries
	}
	if fc.History != nil {
		cfg.EnableHistory = *fc.History
	}
	if fc.HistoryDir != "" {
		cfg.HistoryDir = fc.HistoryDir
	}
	if fc.ExtendedPackets {
		cfg.ExtendedPackets = true
	}
	if fc.Tunnel != "" {
		cfg.TunnelSpec = fc.Tunnel
	}
	if fc.SSHKey != "" {
		cfg.SSHKeyPath = fc.SSHKey
	}
	if fc.SSHAgent {
		cfg.UseSSHAgent = true
	}
	if fc.StrictHostKey {
		cfg.StrictHostKey = true
	}
	if fc.KnownHosts != "" {
		cfg.KnownHostsPath = fc.KnownHosts
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GOICB_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GOICB_NICK"); v != "" {
		cfg.Nick = v
	}
	if v := os.Getenv("GOICB_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("GOICB_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("GOICB_ROOM"); v != "" {
		cfg.Room = v
	}
	if v := envInt("GOICB_TIMEOUT"); v > 0 {
		cfg.NetTimeout = secondsDuration(v)
	}
	if v := envInt("GOICB_MAX_PINGS"); v > 0 {
		cfg.MaxPings = v
	}
	if v := envInt("GOICB_RETRIES"); v > 0 {
		cfg.ConnectRetries = v
	}
	if v, ok := os.LookupEnv("GOICB_HISTORY"); ok {
		cfg.EnableHistory = boolValue(v)
	}
	if v := os.Getenv("GOICB_HISTORY_DIR"); v != "" {
		cfg.HistoryDir = v
	}
	if envBool("GOICB_EXTENDED_PACKETS") {
		cfg.ExtendedPackets = true
	}

	// SSH tunnel
	if v := os.Getenv("GOICB_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("GOICB_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("GOICB_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("GOICB_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("GOICB_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("GOICB_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("GOICB_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	return boolValue(os.Getenv(key))
}

func boolValue(v string) bool {
	v = strings.ToLower(v)
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
