package session

import (
	"bytes"
	"strings"
	"testing"

	goicberr "goicb/internal/errors"
	"goicb/internal/proto"
	"goicb/util"
)

func newTestSession() *Session {
	return New("vasya", "lobby", "icb.example.net", nil, nil, util.NewLogger(0))
}

// netMessages flushes the network queue and decodes it back into
// logical messages.
func netMessages(t *testing.T, s *Session) []proto.Message {
	t.Helper()
	var wire bytes.Buffer
	if err := s.NetQ.Flush(&wire); err != nil {
		t.Fatal(err)
	}
	d := proto.NewDecoder()
	if err := d.Append(wire.Bytes()); err != nil {
		t.Fatal(err)
	}
	var out []proto.Message
	for {
		m, err := d.Next()
		if err != nil {
			t.Fatal(err)
		}
		if m == nil {
			return out
		}
		out = append(out, proto.Message{Type: m.Type, Payload: append([]byte{}, m.Payload...)})
	}
}

func display(t *testing.T, s *Session) string {
	t.Helper()
	var buf bytes.Buffer
	if err := s.DisplayQ.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func handle(t *testing.T, s *Session, typ byte, payload string) error {
	t.Helper()
	return s.Handle(&proto.Message{Type: typ, Payload: []byte(payload)})
}

// ── state legality ───────────────────────────────────────────────────

func TestOpenMessageWhileConnectingIsFatal(t *testing.T) {
	s := newTestSession()
	err := handle(t, s, proto.MsgOpen, "alice\x01hi")
	var pe *goicberr.ProtocolError
	if !goicberr.As(err, &pe) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
}

func TestUnexpectedTypesPerState(t *testing.T) {
	tests := []struct {
		state   State
		typ     byte
		payload string
		fatal   bool
	}{
		{Connecting, proto.MsgOpen, "a\x01b", true},
		{Connected, proto.MsgLoginOK, "", true},
		{LoginSent, proto.MsgExit, "", true},
		{Chat, proto.MsgProtocol, "1", true},
		{Chat, proto.MsgCmdResult, "co\x01x", true},
		{Connecting, proto.MsgNoop, "", true},
		{Chat, proto.MsgNoop, "", false},
		{CommandSent, proto.MsgOpen, "a\x01b", false}, // chat resumes command mode
	}

	for _, tt := range tests {
		s := newTestSession()
		s.State = tt.state
		err := handle(t, s, tt.typ, tt.payload)
		if (err != nil) != tt.fatal {
			t.Errorf("type %c in %s: err = %v, want fatal = %v",
				tt.typ, tt.state, err, tt.fatal)
		}
	}
}

// ── handshake / login ────────────────────────────────────────────────

func TestHandshakeQueuesLogin(t *testing.T) {
	s := newTestSession()
	s.State = Connected

	if err := handle(t, s, proto.MsgProtocol, "1\x01HIDDEN\x01unknown\x01"); err != nil {
		t.Fatal(err)
	}
	if s.State != LoginSent {
		t.Errorf("state = %s, want LoginSent", s.State)
	}

	msgs := netMessages(t, s)
	if len(msgs) != 1 {
		t.Fatalf("outbound message count = %d, want 1", len(msgs))
	}
	if msgs[0].Type != proto.MsgLoginOK {
		t.Errorf("outbound type = %c, want a", msgs[0].Type)
	}
	want := "vasya\x01vasya\x01lobby\x01login\x01"
	if string(msgs[0].Payload) != want {
		t.Errorf("login payload = %q, want %q", msgs[0].Payload, want)
	}
}

func TestHandshakeVersionMismatchIsFatal(t *testing.T) {
	s := newTestSession()
	s.State = Connected

	err := handle(t, s, proto.MsgProtocol, "2\x01HIDDEN\x01other\x01")
	var he *goicberr.HandshakeError
	if !goicberr.As(err, &he) {
		t.Fatalf("err = %v, want HandshakeError", err)
	}
	if he.Version != "2" {
		t.Errorf("version = %q, want 2", he.Version)
	}
}

func TestLoginConfirmationEntersChat(t *testing.T) {
	s := newTestSession()
	s.State = LoginSent

	if err := handle(t, s, proto.MsgLoginOK, ""); err != nil {
		t.Fatal(err)
	}
	if s.State != Chat {
		t.Errorf("state = %s, want Chat", s.State)
	}
	if got := display(t, s); !strings.Contains(got, "Logged in to room lobby as vasya") {
		t.Errorf("display = %q", got)
	}
}

func TestErrorBeforeLoginIsFatal(t *testing.T) {
	s := newTestSession()
	s.State = LoginSent

	err := handle(t, s, proto.MsgError, "Nickname already in use")
	var le *goicberr.LoginError
	if !goicberr.As(err, &le) {
		t.Fatalf("err = %v, want LoginError", err)
	}
}

// ── chat traffic ─────────────────────────────────────────────────────

func TestChatMessageIsDisplayed(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	if err := handle(t, s, proto.MsgOpen, "alice\x01hello there"); err != nil {
		t.Fatal(err)
	}
	got := display(t, s)
	if !strings.Contains(got, "<alice> hello there") {
		t.Errorf("display = %q", got)
	}
}

func TestChatMessageMissingTextIsFatal(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	err := handle(t, s, proto.MsgOpen, "no separator here")
	var pe *goicberr.ProtocolError
	if !goicberr.As(err, &pe) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
}

func TestErrorInChatIsDisplayedNotFatal(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	if err := handle(t, s, proto.MsgError, "no such user"); err != nil {
		t.Fatal(err)
	}
	got := display(t, s)
	if !strings.Contains(got, "!icb.example.net! no such user") {
		t.Errorf("display = %q", got)
	}
}

func TestPingUnsupportedClearsFeature(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	if !s.Features.Has(proto.FeaturePing) {
		t.Fatal("FeaturePing should start set")
	}
	if err := handle(t, s, proto.MsgError, "Undefined message type 108"); err != nil {
		t.Fatal(err)
	}
	if s.Features.Has(proto.FeaturePing) {
		t.Error("FeaturePing should be cleared")
	}
	if got := display(t, s); got != "" {
		t.Errorf("feature downgrade should not be displayed, got %q", got)
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	if err := handle(t, s, proto.MsgPing, "id42"); err != nil {
		t.Fatal(err)
	}
	msgs := netMessages(t, s)
	if len(msgs) != 1 || msgs[0].Type != proto.MsgPong {
		t.Fatalf("outbound = %v, want one pong", msgs)
	}
	if string(msgs[0].Payload) != "id42" {
		t.Errorf("pong payload = %q, want id42", msgs[0].Payload)
	}
}

func TestServerExitTerminatesCleanly(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	if err := handle(t, s, proto.MsgExit, ""); err != nil {
		t.Fatal(err)
	}
	if !goicberr.Is(s.Terminated(), goicberr.ErrServerExit) {
		t.Errorf("termination = %v, want ErrServerExit", s.Terminated())
	}
	if !strings.Contains(display(t, s), "bye-bye") {
		t.Error("exit should announce itself")
	}
}

func TestUnsupportedTypeIsIgnoredWithNotice(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	if err := handle(t, s, 'z', "whatever"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(display(t, s), "unsupported message of type 'z'") {
		t.Error("unknown type should print a notice")
	}
}

// ── user input ───────────────────────────────────────────────────────

func TestUserLinePublicMessage(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	s.UserLine("hello everyone")
	msgs := netMessages(t, s)
	if len(msgs) != 1 || msgs[0].Type != proto.MsgOpen {
		t.Fatalf("outbound = %v, want one open message", msgs)
	}
	if string(msgs[0].Payload) != "hello everyone" {
		t.Errorf("payload = %q", msgs[0].Payload)
	}
	if s.State != Chat {
		t.Errorf("state = %s, want Chat", s.State)
	}
}

func TestUserLineCommandEntersCommandSent(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	s.UserLine("/who lobby")
	msgs := netMessages(t, s)
	if len(msgs) != 1 || msgs[0].Type != proto.MsgCommand {
		t.Fatalf("outbound = %v, want one command", msgs)
	}
	if string(msgs[0].Payload) != "who\x01lobby" {
		t.Errorf("payload = %q, want who\\x01lobby", msgs[0].Payload)
	}
	if s.State != CommandSent {
		t.Errorf("state = %s, want CommandSent", s.State)
	}
}

func TestUserLineBlankIsIgnored(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	s.UserLine("   \t ")
	if !s.NetQ.Empty() {
		t.Error("blank line should queue nothing")
	}
}

func TestCommandRoundTripReturnsToChat(t *testing.T) {
	s := newTestSession()
	s.State = Chat

	s.UserLine("/who")
	if s.State != CommandSent {
		t.Fatalf("state = %s, want CommandSent", s.State)
	}

	if err := handle(t, s, proto.MsgCmdResult, "co\x01alice is here\n"); err != nil {
		t.Fatal(err)
	}
	out := display(t, s) // flush: fires the newline-tracking callback
	if err := handle(t, s, proto.MsgCmdResult, "ec\x01"); err != nil {
		t.Fatal(err)
	}
	if s.State != Chat {
		t.Errorf("state = %s, want Chat after ec", s.State)
	}
	if !strings.Contains(out, "alice is here") {
		t.Errorf("command output missing: %q", out)
	}
	// The co line ended in \n, so ec must not add another.
	if tail := display(t, s); tail != "" {
		t.Errorf("ec added %q after newline-terminated output", tail)
	}
}

func TestCommandOutputWithoutNewlineGetsOne(t *testing.T) {
	s := newTestSession()
	s.State = CommandSent

	if err := handle(t, s, proto.MsgCmdResult, "co\x01no newline"); err != nil {
		t.Fatal(err)
	}
	display(t, s)
	if err := handle(t, s, proto.MsgCmdResult, "ec\x01"); err != nil {
		t.Fatal(err)
	}
	if got := display(t, s); got != "\n" {
		t.Errorf("ec should append a newline, got %q", got)
	}
}

func TestDeprecatedCommandTagsAreConsumed(t *testing.T) {
	s := newTestSession()
	for _, tag := range []string{"wh", "gh", "ch", "c"} {
		s.State = CommandSent
		if err := handle(t, s, proto.MsgCmdResult, tag+"\x01stuff"); err != nil {
			t.Errorf("tag %s: %v", tag, err)
		}
	}
	if got := display(t, s); got != "" {
		t.Errorf("deprecated tags should render nothing, got %q", got)
	}
}

func TestUnknownCommandTagIsFatal(t *testing.T) {
	s := newTestSession()
	s.State = CommandSent

	err := handle(t, s, proto.MsgCmdResult, "zz\x01stuff")
	var pe *goicberr.ProtocolError
	if !goicberr.As(err, &pe) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
}

func TestInputClosedTerminates(t *testing.T) {
	s := newTestSession()
	s.InputClosed()
	if !goicberr.Is(s.Terminated(), goicberr.ErrInputClosed) {
		t.Errorf("termination = %v, want ErrInputClosed", s.Terminated())
	}
}
