package config

import (
	"strings"
	"testing"
	"time"
)

// valid returns a configuration that passes Validate, for tests to
// break one field at a time.
func valid() *Config {
	cfg := Default()
	cfg.Nick = "vasya"
	cfg.Host = "chat.example.com"
	cfg.Room = "lobby"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string // substring of the error
	}{
		{"missing host", func(c *Config) { c.Host = "" }, "hostname"},
		{"missing room", func(c *Config) { c.Room = "" }, "room"},
		{"missing nick", func(c *Config) { c.Nick = "" }, "nickname"},
		{"nick too long", func(c *Config) { c.Nick = strings.Repeat("x", 64) }, "63"},
		{"bad port", func(c *Config) { c.Port = 0 }, "port"},
		{"timeout too small", func(c *Config) { c.NetTimeout = 100 * time.Millisecond }, "1s"},
		{"zero max pings", func(c *Config) { c.MaxPings = 0 }, "pings"},
		{"tunnel without host", func(c *Config) { c.TunnelEnabled = true }, "tunnel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_TimeoutDisabled(t *testing.T) {
	cfg := valid()
	cfg.NetTimeout = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero timeout rejected: %v", err)
	}
}

func TestValidate_NickAtLimit(t *testing.T) {
	cfg := valid()
	cfg.Nick = strings.Repeat("x", 63)
	if err := cfg.Validate(); err != nil {
		t.Errorf("63-char nick rejected: %v", err)
	}
}
