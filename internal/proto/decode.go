package proto

import (
	goicberr "goicb/internal/errors"
)

const (
	// initialBufSize is the starting capacity of the assembly buffer.
	initialBufSize = 1024

	// MaxMessageSize is the hard ceiling of the assembly buffer.
	// A logical message that does not fit is a fatal protocol error:
	// the stream cannot be resynchronized safely.
	MaxMessageSize = 1 << 20
)

// Decoder reassembles logical messages from the raw inbound byte
// stream. Bytes are accumulated with Append and extracted with Next;
// partial packets stay buffered across calls.
//
// Not safe for concurrent use; expected usage is the single event-loop
// goroutine.
type Decoder struct {
	buf    []byte
	n      int // bytes currently buffered
	msgEnd int // end of the message returned by the last Next, 0 if none
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, initialBufSize)}
}

// Buffered returns the number of raw bytes awaiting decoding.
func (d *Decoder) Buffered() int { return d.n - d.msgEnd }

// Append adds freshly read bytes to the assembly buffer, growing it by
// doubling up to MaxMessageSize. One spare byte beyond the data is
// always reserved so a missing trailing NUL can be inserted in place.
func (d *Decoder) Append(p []byte) error {
	need := d.n + len(p) + 1
	if need > MaxMessageSize {
		return goicberr.ErrMessageTooLong
	}
	if need > len(d.buf) {
		size := len(d.buf) * 2
		for size < need {
			size *= 2
		}
		if size > MaxMessageSize {
			size = MaxMessageSize
		}
		nbuf := make([]byte, size)
		copy(nbuf, d.buf[:d.n])
		d.buf = nbuf
	}
	copy(d.buf[d.n:], p)
	d.n += len(p)
	return nil
}

// Next extracts the next complete logical message, or returns nil when
// more bytes are needed. The returned Message aliases the internal
// buffer and is valid only until the following Next call.
//
// A multi-packet message arrives as 256-byte slots whose length byte
// is zero ("continuation") except for the final one. Reassembly strips
// the per-slot length and type bytes in place so the payload becomes
// contiguous.
func (d *Decoder) Next() (*Message, error) {
	// Shift out the previously returned message first.
	if d.msgEnd > 0 {
		copy(d.buf, d.buf[d.msgEnd:d.n])
		d.n -= d.msgEnd
		d.msgEnd = 0
	}
	if d.n == 0 {
		return nil, nil
	}

	// Walk 256-byte strides while the slot's length byte is zero. The
	// walk ends at the final slot of the current message; running past
	// the buffered bytes means the message is still incomplete.
	last := 0
	for {
		if last >= d.n {
			return nil, nil
		}
		if d.buf[last] != 0 {
			break
		}
		if last+extSlotSize > d.n {
			return nil, nil
		}
		last += extSlotSize
	}

	// The final slot must be fully present too.
	msgEnd := last + 1 + int(d.buf[last])
	if msgEnd > d.n {
		return nil, nil
	}

	// Compact in place: every slot after the first loses its length
	// and type bytes; when the previous slot ended with a NUL that
	// separator goes as well. The type bytes must agree along the way.
	pkt := 0
	for pkt <= last {
		if d.buf[pkt+1] != d.buf[last+1] {
			return nil, &goicberr.FramingError{
				Offset: pkt,
				Reason: "message types messed up in a single message",
			}
		}
		if pkt != 0 {
			shift := 2
			if d.buf[pkt-1] == 0 {
				shift = 3
			}
			copy(d.buf[pkt+2-shift:], d.buf[pkt+2:d.n])
			d.n -= shift
			last -= shift
			msgEnd -= shift
			pkt -= shift
		}
		pkt += extSlotSize
	}

	// Guarantee an explicit terminator; Append reserved the spare byte.
	if d.buf[msgEnd-1] != 0 {
		copy(d.buf[msgEnd+1:d.n+1], d.buf[msgEnd:d.n])
		d.buf[msgEnd] = 0
		msgEnd++
		d.n++
	}

	d.msgEnd = msgEnd
	return &Message{Type: d.buf[1], Payload: d.buf[2 : msgEnd-1]}, nil
}
