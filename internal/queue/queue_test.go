package queue

import (
	"bytes"
	"errors"
	"testing"
)

// chokeWriter accepts at most cap bytes per Write call.
type chokeWriter struct {
	buf bytes.Buffer
	cap int
}

func (w *chokeWriter) Write(p []byte) (int, error) {
	if len(p) > w.cap {
		p = p[:w.cap]
	}
	return w.buf.Write(p)
}

// failWriter errors after accepting n bytes.
type failWriter struct {
	n   int
	err error
}

func (w *failWriter) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, w.err
	}
	n := w.n
	if n > len(p) {
		n = len(p)
	}
	w.n -= n
	return n, nil
}

func TestFlushDeliversInOrder(t *testing.T) {
	var q Queue
	q.PushString("first ")
	q.PushString("second ")
	q.PushString("third")

	var out bytes.Buffer
	if err := q.Flush(&out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "first second third" {
		t.Errorf("output = %q", out.String())
	}
	if !q.Empty() {
		t.Errorf("queue not drained: %d tasks left", q.Len())
	}
}

func TestPartialWriteResumption(t *testing.T) {
	var q Queue
	data := bytes.Repeat([]byte{'p'}, 100)
	q.PushBytes(data)

	// First flush consumes only 40 bytes.
	w := &chokeWriter{cap: 40}
	one := &failWriter{n: 40, err: errTryLater{}}
	if err := q.Flush(one); err != nil {
		t.Fatal(err)
	}
	if q.Empty() {
		t.Fatal("task should remain queued after a partial write")
	}
	if got := q.tasks[0].Remaining(); got != 60 {
		t.Fatalf("remaining = %d, want 60", got)
	}

	// Second flush must reissue exactly the remaining 60 bytes.
	if err := q.Flush(w); err != nil {
		t.Fatal(err)
	}
	if w.buf.Len() != 60 {
		t.Errorf("resumed bytes = %d, want 60", w.buf.Len())
	}
	if !bytes.Equal(w.buf.Bytes(), data[40:]) {
		t.Error("resumed bytes differ from the tail of the original task")
	}
	if !q.Empty() {
		t.Error("queue should be drained")
	}
}

// errTryLater mimics a write-deadline timeout.
type errTryLater struct{}

func (errTryLater) Error() string   { return "i/o timeout" }
func (errTryLater) Timeout() bool   { return true }
func (errTryLater) Temporary() bool { return true }

func TestFlushStopsOnTimeout(t *testing.T) {
	var q Queue
	q.PushString("hello")
	w := &failWriter{n: 2, err: errTryLater{}}

	if err := q.Flush(w); err != nil {
		t.Fatalf("timeout should not surface as an error: %v", err)
	}
	if q.Empty() {
		t.Fatal("task should stay queued")
	}
	if got := q.tasks[0].Remaining(); got != 3 {
		t.Errorf("remaining = %d, want 3", got)
	}
}

func TestFlushSurfacesRealErrors(t *testing.T) {
	var q Queue
	q.PushString("doomed")
	boom := errors.New("broken pipe")
	if err := q.Flush(&failWriter{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestOnDoneFiresOncePerTask(t *testing.T) {
	var q Queue
	fired := 0
	tk := NewTask([]byte("notify"))
	tk.OnDone = func() { fired++ }
	q.Push(tk)

	// Deliver in two partial rounds; the callback must fire exactly
	// once, at full flush.
	w := &failWriter{n: 3, err: errTryLater{}}
	if err := q.Flush(w); err != nil {
		t.Fatal(err)
	}
	if fired != 0 {
		t.Fatalf("callback fired before full flush")
	}
	var out bytes.Buffer
	if err := q.Flush(&out); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Errorf("callback fired %d times, want 1", fired)
	}
}

func TestTaskOwnsItsBuffer(t *testing.T) {
	src := []byte("mutate me")
	tk := NewTask(src)
	src[0] = 'X'

	var q Queue
	q.Push(tk)
	var out bytes.Buffer
	if err := q.Flush(&out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "mutate me" {
		t.Errorf("task buffer aliased caller data: %q", out.String())
	}
}
