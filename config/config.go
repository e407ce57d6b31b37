// Package config defines the runtime configuration for goicb and
// provides parsers for the target and tunnel specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	goicberr "goicb/internal/errors"
	"goicb/internal/proto"
)

// Config holds every tuneable for a single goicb session.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Nick           string
	Host           string
	Port           int
	Room           string
	NetTimeout     time.Duration // keepalive silence interval, 0 disables
	MaxPings       int           // unanswered keepalives before giving up
	ConnectRetries int           // dial attempts before the first failure is final

	// ── Protocol ─────────────────────────────────────────────────────
	ExtendedPackets bool // enable the multi-packet message extension

	// ── History ──────────────────────────────────────────────────────
	EnableHistory bool
	HistoryDir    string // empty → per-user default

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// ── Target parser ────────────────────────────────────────────────────

// targetRe matches [nick@]host[:port].
var targetRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTarget fills Nick, Host, and Port from a string such as
// "vasya@chat.example.com:7326".  Nick and port are optional; an
// absent port leaves the configured (or default) value in place.
func (c *Config) ParseTarget(spec string) error {
	m := targetRe.FindStringSubmatch(spec)
	if m == nil {
		return &goicberr.ConfigError{
			Field:   "target",
			Value:   spec,
			Message: "cannot parse",
			Hint:    "expected [nick@]host[:port]",
		}
	}
	if m[1] != "" {
		c.Nick = m[1]
	}
	c.Host = m[2]
	if m[3] != "" {
		port, err := strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return &goicberr.ConfigError{
				Field:   "port",
				Value:   m[3],
				Message: "out of range 1-65535",
			}
		}
		c.Port = port
	}
	return nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent and
// acceptable to a server.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &goicberr.ConfigError{
			Field:   "host",
			Message: "server hostname is required",
			Hint:    "goicb [nick@]host[:port] room",
		}
	}
	if c.Room == "" {
		return &goicberr.ConfigError{
			Field:   "room",
			Message: "room name is required",
		}
	}
	if c.Nick == "" {
		return &goicberr.ConfigError{
			Field:   "nick",
			Message: "nickname is required",
			Hint:    "pass nick@host or set GOICB_NICK",
		}
	}
	if len(c.Nick) >= proto.NicknameMax {
		return &goicberr.ConfigError{
			Field:   "nick",
			Value:   c.Nick,
			Message: fmt.Sprintf("longer than %d characters", proto.NicknameMax-1),
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &goicberr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
		}
	}
	if c.NetTimeout != 0 && c.NetTimeout < time.Second {
		return &goicberr.ConfigError{
			Field:   "timeout",
			Value:   c.NetTimeout,
			Message: "must be 0 (disabled) or at least 1s",
		}
	}
	if c.MaxPings < 1 {
		return &goicberr.ConfigError{
			Field:   "max pings",
			Value:   c.MaxPings,
			Message: "must be at least 1",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &goicberr.ConfigError{
			Field:   "tunnel",
			Message: "tunnel host is required",
		}
	}
	return nil
}
