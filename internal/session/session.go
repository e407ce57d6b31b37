// Package session holds the protocol state of one ICB connection: the
// login/chat state machine, the negotiated server features, and the
// outbound queues the event loop drains.
//
// The session consumes decoded messages and completed user input
// lines; it produces outbound packets on the network queue and
// formatted text on the display queue. It never touches the socket
// itself; that is the capability layer's job.
package session

import (
	"bytes"
	"io"
	"net"
	"strings"
	"time"

	goicberr "goicb/internal/errors"
	"goicb/internal/history"
	"goicb/internal/metrics"
	"goicb/internal/proto"
	"goicb/internal/queue"
	"goicb/util"
)

// State is the current phase of the login/chat protocol.
type State int

const (
	Connecting State = iota
	Connected
	LoginSent
	Chat
	CommandSent
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case LoginSent:
		return "LoginSent"
	case Chat:
		return "Chat"
	case CommandSent:
		return "CommandSent"
	}
	return "Unknown"
}

// pingUnsupported is the error text a pre-ping server sends back for
// our 'l' messages; it downgrades the session to no-op keepalives.
const pingUnsupported = "Undefined message type 108"

// Session encapsulates the runtime context of a single connection.
type Session struct {
	Conn   net.Conn
	Stdin  io.Reader
	Stdout io.Writer

	State    State
	Nick     string
	Room     string
	Hostname string
	Features proto.Features

	// Keepalive bookkeeping, owned by the event loop.
	PingsSent    int
	LastNetInput time.Time

	// NetQ holds encoded packets bound for the socket; DisplayQ holds
	// text bound for the display stream.
	NetQ     queue.Queue
	DisplayQ queue.Queue

	Log   *util.Logger
	Stats *metrics.Collector

	hist         *history.Writer
	now          func() time.Time
	lastCmdHadNL bool
	term         error // expected-termination cause, nil while running
}

// New creates a session in the Connecting state with pings assumed
// supported until the server says otherwise.
func New(nick, room, hostname string, hist *history.Writer, stats *metrics.Collector, logger *util.Logger) *Session {
	return &Session{
		State:        Connecting,
		Nick:         nick,
		Room:         room,
		Hostname:     hostname,
		Features:     proto.FeaturePing,
		LastNetInput: time.Now(),
		Log:          logger,
		Stats:        stats,
		hist:         hist,
		now:          time.Now,
	}
}

// Terminated returns the expected-termination cause, or nil while the
// session should keep running.
func (s *Session) Terminated() error { return s.term }

// Terminate records err as the clean shutdown cause. The first cause
// wins.
func (s *Session) Terminate(err error) {
	if s.term == nil {
		s.term = err
	}
}

// SetConnected marks connect completion (the socket became writable).
func (s *Session) SetConnected() {
	s.State = Connected
	s.Display("connected\n")
}

// Push encodes one logical message and queues its packets for the
// socket, in order.
func (s *Session) Push(typ byte, payload []byte) {
	s.Log.Debug("queueing message of type '%c' with size %d", typ, len(payload))
	enc := proto.Encoder{Nick: s.Nick, Features: s.Features}
	for _, pkt := range enc.Encode(typ, payload) {
		s.NetQ.PushBytes(pkt)
	}
	s.Stats.MessageSent()
}

// Display queues text for the display stream verbatim. Chat traffic
// goes through displayChat instead, which timestamps and sanitizes.
func (s *Session) Display(text string) {
	s.DisplayQ.PushString(text)
}

// displayChat records a chat event in the history log and queues its
// formatted form.
func (s *Session) displayChat(typ byte, author, text string) {
	s.hist.Save(typ, author, text)
	s.Display(formatChat(s.now(), typ, author, text))
}

// Handle runs one decoded message through the state machine. A non-nil
// error is a fatal protocol violation; expected terminations are
// recorded via Terminate instead.
func (s *Session) Handle(m *proto.Message) error {
	s.Stats.MessageReceived()
	s.Log.Debug("got message of type '%c' with size %d in state %s",
		m.Type, len(m.Payload), s.State)

	switch m.Type {
	case proto.MsgLoginOK:
		if s.State != LoginSent {
			return goicberr.Unexpected(m.Type, s.State.String())
		}
		s.Display("Logged in to room " + s.Room + " as " + s.Nick + "\n")
		s.State = Chat

	case proto.MsgOpen, proto.MsgPersonal, proto.MsgStatus, proto.MsgImportant:
		if s.State == CommandSent {
			s.State = Chat
		} else if s.State != Chat {
			return goicberr.Unexpected(m.Type, s.State.String())
		}
		author, text, ok := bytes.Cut(m.Payload, []byte{proto.FieldSep})
		if !ok {
			return goicberr.Invalid(m.Type, "missing text")
		}
		s.displayChat(m.Type, string(author), string(text))

	case proto.MsgError:
		text := string(m.Payload)
		if s.State != Chat && s.State != CommandSent {
			return &goicberr.LoginError{Text: text}
		}
		if text == pingUnsupported {
			s.Features &^= proto.FeaturePing
			s.Log.Debug("server doesn't support ping-pong, switching to no-op messages")
			break
		}
		s.displayChat(m.Type, s.Hostname, text)

	case proto.MsgExit:
		if s.State != Chat {
			return goicberr.Unexpected(m.Type, s.State.String())
		}
		s.Display("ICB: server said bye-bye\n")
		s.Terminate(goicberr.ErrServerExit)

	case proto.MsgCmdResult:
		if s.State != CommandSent {
			return goicberr.Unexpected(m.Type, s.State.String())
		}
		return s.handleCommandResult(m.Payload)

	case proto.MsgProtocol:
		if s.State != Connected {
			return goicberr.Unexpected(m.Type, s.State.String())
		}
		return s.handleHandshake(m.Payload)

	case proto.MsgBeep:
		if s.State != Chat {
			return goicberr.Unexpected(m.Type, s.State.String())
		}
		s.displayChat(m.Type, "SERVER", "BEEP!")

	case proto.MsgPing:
		// Answered immediately, in any state.
		s.Push(proto.MsgPong, m.Payload)

	case proto.MsgPong:
		// Pongs matter only as traffic; the loop already reset the
		// watchdog when the bytes arrived.

	case proto.MsgNoop:
		if s.State != Chat {
			return goicberr.Unexpected(m.Type, s.State.String())
		}

	default:
		s.Display("unsupported message of type '" + string(m.Type) + "', ignored\n")
	}
	return nil
}

// handleHandshake processes the type-'j' greeting: protocol version,
// host id and server id, field-separated. A version mismatch is
// fatal; on match the login message goes out and the session waits for
// confirmation.
func (s *Session) handleHandshake(payload []byte) error {
	version := payload
	hostID, serverID := []byte("HIDDEN"), []byte("unknown implementation")
	if v, rest, ok := bytes.Cut(payload, []byte{proto.FieldSep}); ok {
		version = v
		hostID = rest
		if h, r, ok := bytes.Cut(rest, []byte{proto.FieldSep}); ok {
			hostID, serverID = h, r
		}
	}
	if string(version) != proto.ProtocolVersion {
		return &goicberr.HandshakeError{Version: string(version)}
	}
	s.Log.Verbose("handshake: host %q runs %q", hostID, serverID)

	sep := string(proto.FieldSep)
	login := s.Nick + sep + s.Nick + sep + s.Room + sep + "login" + sep
	s.Push(proto.MsgLoginOK, []byte(login))
	s.State = LoginSent
	return nil
}

// handleCommandResult dispatches a type-'i' message by its 2-letter
// output-kind tag. The output-end tag returns the session to Chat.
func (s *Session) handleCommandResult(payload []byte) error {
	tag, rest, ok := bytes.Cut(payload, []byte{proto.FieldSep})
	if !ok {
		return goicberr.Invalid(proto.MsgCmdResult, "missing output type")
	}

	switch string(tag) {
	case "co": // one line of command output
		text := sanitize(string(rest), true)
		endsNL := strings.HasSuffix(text, "\n")
		t := queue.NewTask([]byte(text))
		t.OnDone = func() { s.lastCmdHadNL = endsNL }
		s.DisplayQ.Push(t)

	case "ec": // output end
		if !s.lastCmdHadNL {
			s.Display("\n")
		}
		s.lastCmdHadNL = false
		s.State = Chat

	case "wl":
		s.displayUserList(rest)

	case "wg":
		s.displayGroupList(rest)

	case "wh", "gh", "ch", "c":
		// Deprecated header/help tags, silently consumed.

	default:
		return goicberr.Invalid(proto.MsgCmdResult, "unsupported output type")
	}
	return nil
}

// UserLine handles one completed line of user input. Lines starting
// with '/' become client commands; everything else is an open message.
func (s *Session) UserLine(line string) {
	trimmed := strings.TrimLeft(line, " \t\r\n")
	if trimmed == "" {
		return
	}

	if line[0] == '/' && len(line) > 1 {
		cmd := line[1:]
		if n := strings.IndexAny(cmd, " \t"); n >= 0 {
			if cmd[:n] == "m" {
				s.hist.Save(proto.MsgPersonal, "me", cmd[n+1:])
			}
			cmd = cmd[:n] + string(proto.FieldSep) + cmd[n+1:]
		}
		s.Push(proto.MsgCommand, []byte(cmd))
		s.State = CommandSent
		return
	}

	s.hist.Save(proto.MsgOpen, "me", line)
	s.Push(proto.MsgOpen, []byte(line))
}

// InputClosed records the user's disconnect intent (end of input).
func (s *Session) InputClosed() {
	s.Terminate(goicberr.ErrInputClosed)
}

// StatusLine renders the mid-session status requested via SIGUSR1.
func (s *Session) StatusLine() string {
	return "sitting in room " + s.Room + " at " + s.Hostname +
		" as " + s.Nick + " (" + s.Stats.Snapshot().String() + ")\n"
}
