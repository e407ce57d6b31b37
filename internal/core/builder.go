package core

import (
	"goicb/config"
	"goicb/internal/capability"
	"goicb/internal/history"
	"goicb/internal/metrics"
	"goicb/internal/transport"
	"goicb/tunnel"
	"goicb/util"
)

// Build constructs the runnable Mode from the given configuration.
// This is the single dispatch point between the CLI and the
// orchestration layer; cmd hands it a validated Config plus the
// channel that delivers on-demand status requests.
func Build(cfg *config.Config, status <-chan struct{}, logger *util.Logger) (Mode, error) {
	hist, err := buildHistory(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &ConnectMode{
		Dialer: buildDialer(cfg, logger),
		Capability: &capability.Chat{
			Timeout:  cfg.NetTimeout,
			MaxPings: cfg.MaxPings,
			Status:   status,
		},
		Address:  util.FormatAddr(cfg.Host, cfg.Port),
		Nick:     cfg.Nick,
		Room:     cfg.Room,
		Hostname: cfg.Host,
		Retries:  cfg.ConnectRetries,
		Extended: cfg.ExtendedPackets,
		History:  hist,
		Stats:    metrics.New(),
		Logger:   logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
		}, logger)
	}

	return &transport.TCPDialer{Timeout: config.DefaultConnTimeout}
}

// buildHistory creates the chat log writer, resolving the per-user
// default directory when none is configured.
func buildHistory(cfg *config.Config, logger *util.Logger) (*history.Writer, error) {
	dir := cfg.HistoryDir
	if dir == "" {
		d, err := history.DefaultDir()
		if err != nil {
			if cfg.EnableHistory {
				return nil, err
			}
			d = "."
		}
		dir = d
	}
	return history.New(dir, cfg.Host, cfg.Room, cfg.EnableHistory, logger), nil
}
