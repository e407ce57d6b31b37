// Package errors provides domain-specific error types for goicb.
//
// These types carry structured context (message type, session state,
// reason) so the top level can distinguish fatal protocol violations
// from expected terminations and print useful diagnostics.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrServerClosed marks an orderly shutdown by the peer
	// (zero-byte read). It is an expected termination, not a failure.
	ErrServerClosed = errors.New("server closed connection")

	// ErrServerExit marks an explicit exit ('g') message from the
	// server. Expected termination.
	ErrServerExit = errors.New("server requested exit")

	// ErrInputClosed marks end-of-input on the user side. Expected
	// termination.
	ErrInputClosed = errors.New("end of user input")

	// ErrKeepaliveExpired marks keepalive exhaustion: the server
	// stayed silent past the configured budget. Expected termination.
	ErrKeepaliveExpired = errors.New("server timed out")

	// ErrMessageTooLong is returned when the inbound assembly buffer
	// would exceed its hard ceiling. Fatal.
	ErrMessageTooLong = errors.New("message too long")

	ErrNotConnected = errors.New("not connected")
)

// IsExpectedTermination reports whether err belongs to the clean
// shutdown path (exit status 0 with an informational line).
func IsExpectedTermination(err error) bool {
	return errors.Is(err, ErrServerClosed) ||
		errors.Is(err, ErrServerExit) ||
		errors.Is(err, ErrInputClosed) ||
		errors.Is(err, ErrKeepaliveExpired)
}

// ── Structured error types ───────────────────────────────────────────

// ProtocolError represents a fatal protocol violation: a message type
// that is illegal in the current session state, or a malformed message
// the client cannot safely skip. There is no resynchronization
// strategy; the session must terminate.
type ProtocolError struct {
	Type   byte   // wire message type involved
	State  string // session state when the violation occurred
	Reason string // human-readable explanation
}

func (e *ProtocolError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid message of type '%c' received: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("unexpected message of type '%c' received in state %s", e.Type, e.State)
}

// Unexpected creates a ProtocolError for a message type that is not
// legal in the given state.
func Unexpected(typ byte, state string) *ProtocolError {
	return &ProtocolError{Type: typ, State: state}
}

// Invalid creates a ProtocolError for a message that is malformed
// regardless of state.
func Invalid(typ byte, reason string) *ProtocolError {
	return &ProtocolError{Type: typ, Reason: reason}
}

// FramingError represents a packet-level desync detected while
// reassembling a multi-packet message. Fatal: further framing cannot
// be trusted.
type FramingError struct {
	Offset int    // byte offset into the assembly buffer
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing desync at offset %d: %s", e.Offset, e.Reason)
}

// HandshakeError represents a protocol-version mismatch during the
// initial handshake. Fatal.
type HandshakeError struct {
	Version string // version string the server announced
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("unsupported protocol version %q", e.Version)
}

// LoginError represents an error ('e') message received before login
// completed. Fatal: the session never became usable.
type LoginError struct {
	Text string // error text from the server
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login refused: %s", e.Text)
}

// SSHError represents an SSH tunnel failure with gateway context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "forward"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // flag or config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: %s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }
