package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"goicb/internal/capability"
	goicberr "goicb/internal/errors"
	"goicb/internal/history"
	"goicb/internal/metrics"
	"goicb/internal/proto"
	"goicb/internal/retry"
	"goicb/internal/session"
	"goicb/internal/transport"
	"goicb/util"
)

// ConnectMode dials the chat server and runs the chat capability on
// the resulting connection.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Address    string
	Nick       string
	Room       string
	Hostname   string
	Retries    int
	Extended   bool // enable the multi-packet message extension
	History    *history.Writer
	Stats      *metrics.Collector
	Logger     *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the server (retrying transient failures), creates a
// session, and hands it to the capability.  The transport and the
// history log are closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()
	defer m.History.Close()

	fmt.Fprintf(m.stdout(), "Trying to connect to %s...\n", m.Address)

	conn, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())

	sess := session.New(m.Nick, m.Room, m.Hostname, m.History, m.Stats, m.Logger)
	sess.Conn = conn
	sess.Stdin = m.stdin()
	sess.Stdout = m.stdout()
	if m.Extended {
		sess.Features |= proto.FeatureExtendedPackets
	}
	sess.SetConnected()

	return m.Capability.Handle(ctx, sess)
}

// dial attempts the connection, backing off between retries when more
// than one attempt is allowed. Credential failures on the tunnel stop
// the retry loop: they cannot improve.
func (m *ConnectMode) dial(ctx context.Context) (net.Conn, error) {
	b := &retry.Backoff{
		Base:     time.Second,
		Cap:      30 * time.Second,
		Attempts: m.Retries,
		Jitter:   true,
	}
	if b.Attempts < 1 {
		b.Attempts = 1
	}

	var conn net.Conn
	err := b.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			m.Logger.Info("retrying connection (attempt %d of %d)", attempt, b.Attempts)
		}
		c, err := m.Dialer.Dial(ctx, "tcp", m.Address)
		if err != nil {
			var sshErr *goicberr.SSHError
			if goicberr.As(err, &sshErr) && (sshErr.Op == "auth" || sshErr.Op == "hostkey") {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	return conn, err
}
