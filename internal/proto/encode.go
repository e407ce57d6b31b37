package proto

import "bytes"

// maxPacketData is the largest value the length byte can carry: the
// count of bytes following it within one packet.
const maxPacketData = 255

// extSlotSize is the fixed slot size of the extended framing mode.
const extSlotSize = 256

// privatePrefix starts the payload of a private-message command
// ("m\x01recipient text").
var privatePrefix = []byte{'m', FieldSep}

// Encoder fragments logical messages into wire packets. The nickname
// is needed to reserve headroom: the server prepends a "from" field to
// relayed chat packets, and the result must still fit in one packet.
type Encoder struct {
	Nick     string
	Features Features
}

// Encode splits one logical message into wire-ready packets, selecting
// the framing mode from the negotiated server features. Each returned
// slice is one complete packet including its length byte.
func (e *Encoder) Encode(typ byte, payload []byte) [][]byte {
	if e.Features.Has(FeatureExtendedPackets) {
		return e.encodeExtended(typ, payload)
	}
	return e.encodeWS(typ, payload)
}

// encodeWS is the standard mode: independent same-type packets sent
// back to back, whose payloads the server concatenates. Chat text is
// split at word boundaries where possible so words are not torn.
func (e *Encoder) encodeWS(typ byte, msg []byte) [][]byte {
	// A private message must re-address its recipient in every chunk,
	// so the "m\x01nick " prefix is repeated verbatim.
	var common []byte
	private := typ == MsgCommand && bytes.HasPrefix(msg, privatePrefix)
	if private {
		if sp := bytes.IndexByte(msg, ' '); sp >= 0 && sp < NicknameMax+3 {
			common = msg[:sp+1]
		}
	}
	src := msg[len(common):]

	// Headroom below the packet cap for the server-side "from" field.
	maxChunk := 253 - (len(e.Nick) + 1) - len(common)

	var pkts [][]byte
	for {
		n := len(src)
		if n > maxChunk {
			n = maxChunk
			if typ == MsgOpen || private {
				for i := n - 1; i > 0; i-- {
					if splitByte(src[i]) {
						n = i + 1
						break
					}
				}
			}
		}
		pkt := make([]byte, 0, n+len(common)+3)
		pkt = append(pkt, byte(n+len(common)+2), typ)
		pkt = append(pkt, common...)
		pkt = append(pkt, src[:n]...)
		pkt = append(pkt, 0)
		pkts = append(pkts, pkt)
		src = src[n:]
		if len(src) == 0 {
			break
		}
	}
	return pkts
}

// encodeExtended is the proposed multi-packet mode: fixed 256-byte
// slots where a zero length byte marks "more data follows". The final
// slot carries the actual trailing byte count and is not padded.
func (e *Encoder) encodeExtended(typ byte, msg []byte) [][]byte {
	total := len(msg) + 1 // implicit trailing NUL
	slots := (total + extSlotSize - 3) / (extSlotSize - 2)

	pkts := make([][]byte, 0, slots)
	src := msg
	for i := 0; i < slots-1; i++ {
		pkt := make([]byte, extSlotSize)
		pkt[1] = typ // pkt[0] stays 0: continuation marker
		copy(pkt[2:], src[:extSlotSize-2])
		src = src[extSlotSize-2:]
		pkts = append(pkts, pkt)
	}

	rem := total - (slots-1)*(extSlotSize-2) // 1..254, counts the NUL
	pkt := make([]byte, 2+rem)
	pkt[0] = byte(rem + 1) // type byte + remaining data
	pkt[1] = typ
	copy(pkt[2:], src) // final NUL is already zero
	return append(pkts, pkt)
}

// splitByte reports whether c is a preferred chunk boundary: blank or
// ASCII punctuation.
func splitByte(c byte) bool {
	switch {
	case c == ' ' || c == '\t':
		return true
	case c >= '!' && c <= '/':
		return true
	case c >= ':' && c <= '@':
		return true
	case c >= '[' && c <= '`':
		return true
	case c >= '{' && c <= '~':
		return true
	}
	return false
}
