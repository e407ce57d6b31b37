package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultPort is the IANA-registered ICB port.
	DefaultPort = 7326

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultNetTimeout is the server-silence interval after which a
	// keepalive goes out.
	DefaultNetTimeout = 30 * time.Second

	// DefaultMaxPings is how many unanswered keepalives the client
	// tolerates before declaring the connection dead.
	DefaultMaxPings = 3

	// DefaultConnectRetries is how many dial attempts are made before
	// startup fails.
	DefaultConnectRetries = 1

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second
)

// Default returns a Config carrying every default value; file, env,
// and flag layers overlay it in that order.
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		NetTimeout:     DefaultNetTimeout,
		MaxPings:       DefaultMaxPings,
		ConnectRetries: DefaultConnectRetries,
		EnableHistory:  true,
	}
}
