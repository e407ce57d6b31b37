package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"goicb/internal/proto"
)

// groupNameWidth is the column the group list pads names to.
const groupNameWidth = 30

// formatChat renders one incoming chat event as a timestamped display
// line. The author decoration encodes the message kind the way classic
// clients do.
func formatChat(now time.Time, typ byte, author, text string) string {
	var pre, post string
	switch typ {
	case proto.MsgPersonal:
		pre, post = " *", "* "
	case proto.MsgStatus:
		pre, post = " [=", "=] "
	case proto.MsgError, proto.MsgBeep:
		pre, post = " !", "! "
	case proto.MsgImportant:
		pre, post = " {", "} "
	default:
		pre, post = " <", "> "
	}

	var b strings.Builder
	b.WriteString(now.Format("[15:04:05]"))
	b.WriteString(pre)
	b.WriteString(sanitize(author, false))
	b.WriteString(post)
	b.WriteString(sanitize(text, false))
	b.WriteByte('\n')
	return b.String()
}

// sanitize neutralizes control characters in server-supplied text with
// caret notation so chat lines cannot reprogram the terminal. Tabs
// survive; newlines survive only when keepNL is set (command output
// arrives pre-formatted, chat text must stay on one line).
func sanitize(s string, keepNL bool) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if unsafeByte(s[i], keepNL) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case !unsafeByte(c, keepNL):
			b.WriteByte(c)
		case c == 0x7f:
			b.WriteString("^?")
		default:
			b.WriteByte('^')
			b.WriteByte(c + '@')
		}
	}
	return b.String()
}

func unsafeByte(c byte, keepNL bool) bool {
	if c == '\t' || (keepNL && c == '\n') {
		return false
	}
	return c < 0x20 || c == 0x7f
}

// displayUserList renders one 'wl' record. Fields, separated by the
// protocol field byte: moderator flag ("m" or anything else), nickname,
// idle seconds, an always-zero field, signon timestamp, ident, source
// address. Truncated records render what is present and stop.
func (s *Session) displayUserList(rec []byte) {
	fields := strings.Split(string(rec), string(proto.FieldSep))
	if len(fields) < 2 {
		s.Log.Warn("invalid user info line received, ignoring")
		return
	}

	var b strings.Builder
	if fields[0] == "m" {
		b.WriteByte('*')
	} else {
		b.WriteByte(' ')
	}
	b.WriteString(sanitize(fields[1], false))

	for {
		if len(fields) < 3 {
			break
		}
		if idle, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
			fmt.Fprintf(&b, "  idle %ds", idle)
		}
		// fields[3] is always zero, of no interest
		if len(fields) < 5 {
			break
		}
		if signedOn, err := strconv.ParseInt(fields[4], 10, 64); err == nil {
			b.WriteString("  on since ")
			b.WriteString(time.Unix(signedOn, 0).Format(time.ANSIC))
		}
		if len(fields) < 6 {
			break
		}
		b.WriteString("  ")
		b.WriteString(sanitize(fields[5], false))
		if len(fields) < 7 {
			break
		}
		b.WriteByte('@')
		b.WriteString(sanitize(fields[6], false))
		break
	}

	b.WriteByte('\n')
	s.Display(b.String())
}

// displayGroupList renders one 'wg' record: group name, topic, and an
// ignored message id. The current room is marked with a star.
func (s *Session) displayGroupList(rec []byte) {
	fields := strings.SplitN(string(rec), string(proto.FieldSep), 3)
	if len(fields) < 2 {
		s.Log.Warn("invalid group info line received, ignoring")
		return
	}
	name, topic := fields[0], fields[1]

	var b strings.Builder
	if name == s.Room {
		b.WriteByte('*')
	} else {
		b.WriteByte(' ')
	}
	b.WriteString(sanitize(name, false))
	for b.Len() <= groupNameWidth {
		b.WriteByte(' ')
	}
	b.WriteString(sanitize(topic, false))
	b.WriteByte('\n')
	s.Display(b.String())
}
