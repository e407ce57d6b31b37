// Package metrics provides lightweight counters for tracking runtime
// statistics of a chat session; they feed the status line the user can
// request mid-session.
//
// All methods are safe for concurrent use. A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks the traffic of one session.
type Collector struct {
	bytesIn     atomic.Int64
	bytesOut    atomic.Int64
	messagesIn  atomic.Int64
	messagesOut atomic.Int64
	pingsSent   atomic.Int64

	startTime time.Time
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// MessageReceived records one decoded inbound message.
func (c *Collector) MessageReceived() {
	if c == nil {
		return
	}
	c.messagesIn.Add(1)
}

// MessageSent records one queued outbound message.
func (c *Collector) MessageSent() {
	if c == nil {
		return
	}
	c.messagesOut.Add(1)
}

// PingSent records one keepalive ping.
func (c *Collector) PingSent() {
	if c == nil {
		return
	}
	c.pingsSent.Add(1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	BytesIn     int64         `json:"bytes_in"`
	BytesOut    int64         `json:"bytes_out"`
	MessagesIn  int64         `json:"messages_in"`
	MessagesOut int64         `json:"messages_out"`
	PingsSent   int64         `json:"pings_sent"`
	Uptime      time.Duration `json:"uptime"`
}

// Snapshot returns a consistent-enough copy for display purposes.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		BytesIn:     c.bytesIn.Load(),
		BytesOut:    c.bytesOut.Load(),
		MessagesIn:  c.messagesIn.Load(),
		MessagesOut: c.messagesOut.Load(),
		PingsSent:   c.pingsSent.Load(),
		Uptime:      time.Since(c.startTime).Round(time.Second),
	}
}

// String renders the snapshot as a single status-line fragment.
func (s Snapshot) String() string {
	return fmt.Sprintf("up %s, %d msgs in / %d out, %d bytes in / %d out, %d pings",
		s.Uptime, s.MessagesIn, s.MessagesOut, s.BytesIn, s.BytesOut, s.PingsSent)
}
