// Package proto implements the ICB wire format: logical messages, the
// packet encoder that fragments them to fit the 255-byte packet limit,
// and the streaming decoder that reassembles them.
//
// The wire unit is a packet: one length byte L (number of bytes that
// follow, excluding itself), then L bytes = one type byte + payload.
// Payloads are NUL-terminated on the wire; the NUL is never counted in
// the lengths this package reports.
package proto

// Message type codes (single ASCII byte on the wire).
const (
	MsgLoginOK   byte = 'a' // login / login confirmation
	MsgOpen      byte = 'b' // open (broadcast) message
	MsgPersonal  byte = 'c' // private message
	MsgStatus    byte = 'd' // status message
	MsgError     byte = 'e' // error
	MsgImportant byte = 'f' // important message
	MsgExit      byte = 'g' // server says bye-bye
	MsgCommand   byte = 'h' // client command
	MsgCmdResult byte = 'i' // command output
	MsgProtocol  byte = 'j' // protocol handshake
	MsgBeep      byte = 'k' // beep
	MsgPing      byte = 'l' // ping
	MsgPong      byte = 'm' // pong
	MsgNoop      byte = 'n' // no-op
)

// FieldSep separates fields inside ICB payloads.
const FieldSep byte = 0x01

// NicknameMax bounds nickname length, matching the classic servers.
const NicknameMax = 64

// ProtocolVersion is the only handshake version this client speaks.
const ProtocolVersion = "1"

// Message is one logical unit exchanged with the server: a type tag
// plus an opaque payload (trailing NUL excluded).
type Message struct {
	Type    byte
	Payload []byte
}

// Features is the set of server capabilities the client believes in.
type Features uint8

const (
	// FeaturePing starts set and is cleared (once, forever) when the
	// server reports it does not understand ping messages.
	FeaturePing Features = 1 << iota

	// FeatureExtendedPackets selects the proposed multi-packet
	// fixed-slot framing on the outbound side.
	FeatureExtendedPackets
)

// Has reports whether all bits of f are set.
func (fs Features) Has(f Features) bool { return fs&f == f }
