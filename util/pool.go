package util

import "sync"

// ReadBufSize is the buffer size for socket reads. ICB packets top out
// at 256 bytes, but servers batch bursts of them, so read generously.
const ReadBufSize = 8 * 1024

// BufPool provides reusable read buffers for the socket reader,
// reducing GC pressure on the hot receive path.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ReadBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool. Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
