package tunnel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	goicberr "goicb/internal/errors"
	"goicb/util"
)

// SSHConfig holds everything needed to dial an SSH gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

// SSHTunnel implements [Tunnel] on top of a single ssh.Client. Chat
// connections are forwarded as direct-tcpip channels over it.
type SSHTunnel struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.RWMutex
	client *ssh.Client
	alive  bool
}

// NewSSHTunnel creates an unconnected tunnel for the given gateway.
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHTunnel{config: cfg, logger: logger}
}

// clientConfig resolves credentials and host-key policy into the
// ssh.ClientConfig for the gateway handshake.
func (t *SSHTunnel) clientConfig() (*ssh.ClientConfig, error) {
	auth, err := BuildAuthMethods(t.config)
	if err != nil {
		return nil, goicberr.WrapSSH("auth", t.config.Host, t.config.Port, err)
	}
	hostKeys, err := hostKeyCallback(t.config)
	if err != nil {
		return nil, goicberr.WrapSSH("hostkey", t.config.Host, t.config.Port, err)
	}
	return &ssh.ClientConfig{
		User:            t.config.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         t.config.ConnTimeout,
	}, nil
}

// Connect dials the gateway and completes the SSH handshake. The TCP
// leg honors ctx; the handshake itself is bounded by ConnTimeout.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	sshCfg, err := t.clientConfig()
	if err != nil {
		return err
	}

	addr := util.FormatAddr(t.config.Host, t.config.Port)
	t.logger.Debug("gateway: dialing %s as %s", addr, t.config.User)

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return goicberr.WrapSSH("dial", t.config.Host, t.config.Port, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(raw, addr, sshCfg)
	if err != nil {
		raw.Close()
		return goicberr.WrapSSH("handshake", t.config.Host, t.config.Port, err)
	}

	t.mu.Lock()
	t.client = ssh.NewClient(sshConn, chans, reqs)
	t.alive = true
	t.mu.Unlock()

	go t.watchClose()
	return nil
}

// Dial forwards a connection to address through the gateway.
func (t *SSHTunnel) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	t.mu.RLock()
	client, alive := t.client, t.alive
	t.mu.RUnlock()

	if client == nil || !alive {
		return nil, goicberr.ErrNotConnected
	}

	t.logger.Debug("gateway: forwarding to %s", address)
	conn, err := client.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("forward to %s: %w", address, err)
	}
	return conn, nil
}

// Close tears down the gateway connection.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alive = false
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// IsAlive reports whether the gateway connection is still up.
func (t *SSHTunnel) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alive
}

// watchClose flips the alive flag when the SSH connection ends, from
// either side.
func (t *SSHTunnel) watchClose() {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return
	}

	err := client.Wait()

	t.mu.Lock()
	t.alive = false
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("gateway connection ended: %v", err)
	} else {
		t.logger.Debug("gateway connection ended")
	}
}
