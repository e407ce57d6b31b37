package capability

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	goicberr "goicb/internal/errors"
	"goicb/internal/metrics"
	"goicb/internal/proto"
	"goicb/internal/session"
	"goicb/util"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxPings = 3
)

// Chat runs the interactive chat loop: it shuttles decoded messages
// and completed input lines through the session's state machine,
// drains the session's outbound queues, and keeps the connection
// alive with pings when the server goes quiet.
type Chat struct {
	// Timeout is the silence interval after which a keepalive goes
	// out; after MaxPings unanswered keepalives the connection is
	// declared dead.
	Timeout  time.Duration
	MaxPings int

	// Status delivers on-demand status requests (SIGUSR1). May be
	// nil.
	Status <-chan struct{}
}

// readResult carries one socket read from the reader goroutine. The
// buffer comes from the shared pool and is returned there once the
// bytes have been consumed.
type readResult struct {
	buf *[]byte
	n   int
	err error
}

// Handle drives the session until the server disconnects, the user
// closes input, the keepalive gives up, or the context is cancelled.
// Expected terminations come back as their sentinel errors for the
// caller to classify.
func (c *Chat) Handle(ctx context.Context, sess *session.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer sess.Conn.Close()

	maxPings := c.MaxPings
	if maxPings <= 0 {
		maxPings = defaultMaxPings
	}
	writeTimeout := c.Timeout
	if writeTimeout <= 0 {
		writeTimeout = defaultTimeout
	}

	reads := make(chan readResult)
	go readLoop(ctx, sess.Conn, reads)

	lines := make(chan string)
	go inputLoop(ctx, sess.Stdin, lines)

	dec := proto.NewDecoder()

	// Timeout 0 disables the watchdog entirely.
	var tick <-chan time.Time
	if c.Timeout > 0 {
		ticker := time.NewTicker(c.Timeout / 10)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case r := <-reads:
			if r.n > 0 {
				sess.Stats.BytesReceived(int64(r.n))
				sess.LastNetInput = time.Now()
				sess.PingsSent = 0
				err := dec.Append((*r.buf)[:r.n])
				util.PutBuf(r.buf)
				if err != nil {
					return bail(sess, err)
				}
				if err := drain(dec, sess); err != nil {
					return bail(sess, err)
				}
			} else {
				util.PutBuf(r.buf)
			}
			if r.err != nil {
				if r.err != io.EOF {
					return bail(sess, fmt.Errorf("reading from server: %w", r.err))
				}
				sess.Display("ICB: connection closed by server\n")
				sess.Terminate(goicberr.ErrServerClosed)
			}

		case line, ok := <-lines:
			if !ok {
				lines = nil
				sess.InputClosed()
				break
			}
			sess.UserLine(line)

		case <-tick:
			c.watchdog(sess, c.Timeout, maxPings)

		case <-c.Status:
			sess.Display(sess.StatusLine())
		}

		if err := flush(sess, writeTimeout); err != nil {
			return err
		}
		if term := sess.Terminated(); term != nil {
			return term
		}
	}
}

// watchdog sends a keepalive when the server has been silent for
// longer than one timeout interval per outstanding ping, and gives up
// once maxPings keepalives have gone unanswered. Servers without
// ping support get no-op messages instead; those prove nothing about
// liveness, so the silence clock restarts.
func (c *Chat) watchdog(sess *session.Session, timeout time.Duration, maxPings int) {
	silence := time.Since(sess.LastNetInput)
	if silence <= timeout*time.Duration(sess.PingsSent+1) {
		return
	}

	switch {
	case sess.PingsSent >= maxPings:
		sess.Display("ICB: server timed out\n")
		sess.Terminate(goicberr.ErrKeepaliveExpired)
	case sess.Features.Has(proto.FeaturePing):
		sess.Log.Debug("server is silent for %v, pinging (attempt %d)",
			silence.Round(time.Second), sess.PingsSent+1)
		sess.Push(proto.MsgPing, nil)
		sess.PingsSent++
		sess.Stats.PingSent()
	default:
		sess.Push(proto.MsgNoop, nil)
		sess.LastNetInput = time.Now()
	}
}

// drain runs every fully buffered message through the state machine.
func drain(dec *proto.Decoder, sess *session.Session) error {
	for {
		m, err := dec.Next()
		if err != nil || m == nil {
			return err
		}
		if err := sess.Handle(m); err != nil {
			return err
		}
		if sess.Terminated() != nil {
			return nil
		}
	}
}

// flush pushes queued packets to the socket and queued text to the
// display. A socket write that hits its deadline leaves the rest
// queued for the next pass.
func flush(sess *session.Session, timeout time.Duration) error {
	if !sess.NetQ.Empty() {
		sess.Conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := sess.NetQ.Flush(countingWriter{sess.Conn, sess.Stats}); err != nil {
			return bail(sess, fmt.Errorf("writing to server: %w", err))
		}
	}
	if err := sess.DisplayQ.Flush(sess.Stdout); err != nil {
		return fmt.Errorf("writing to display: %w", err)
	}
	return nil
}

// bail flushes pending display text best-effort before surfacing a
// fatal error, so the user sees what led up to it.
func bail(sess *session.Session, err error) error {
	sess.DisplayQ.Flush(sess.Stdout)
	return err
}

func readLoop(ctx context.Context, conn net.Conn, out chan<- readResult) {
	for {
		buf := util.GetBuf()
		n, err := conn.Read(*buf)
		select {
		case out <- readResult{buf, n, err}:
		case <-ctx.Done():
			util.PutBuf(buf)
			return
		}
		if err != nil {
			return
		}
	}
}

func inputLoop(ctx context.Context, r io.Reader, out chan<- string) {
	if r == nil {
		close(out)
		return
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
	close(out)
}

// countingWriter feeds outbound byte counts to the session stats.
type countingWriter struct {
	w     io.Writer
	stats *metrics.Collector
}

func (cw countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.stats.BytesSent(int64(n))
	return n, err
}
