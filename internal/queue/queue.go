// Package queue provides the ordered outbound-write queues that back
// each destination (network socket, display stream). Every queued task
// tracks how many of its bytes have already been written so partial
// writes resume exactly where they stopped.
package queue

import (
	"errors"
	"net"
	"os"
)

// Task is one pending write: an owned byte buffer, the count of bytes
// already delivered, and an optional callback fired exactly once when
// the buffer has been fully flushed.
type Task struct {
	data   []byte
	done   int
	OnDone func()
}

// NewTask copies data into a task the queue will own exclusively.
func NewTask(data []byte) *Task {
	return &Task{data: append([]byte{}, data...)}
}

// Len returns the total task size in bytes.
func (t *Task) Len() int { return len(t.data) }

// Remaining returns the bytes not yet delivered.
func (t *Task) Remaining() int { return len(t.data) - t.done }

// Queue is a FIFO of tasks for a single destination. Insertion order
// is delivery order; a task's bytes are never interleaved with
// another's. Not safe for concurrent use: a queue has one owner, the
// event loop.
type Queue struct {
	tasks []*Task
}

// Push appends a task.
func (q *Queue) Push(t *Task) { q.tasks = append(q.tasks, t) }

// PushBytes appends a task owning a copy of data.
func (q *Queue) PushBytes(data []byte) { q.Push(NewTask(data)) }

// PushString appends a task owning a copy of text.
func (q *Queue) PushString(text string) { q.Push(NewTask([]byte(text))) }

// Len returns the number of queued tasks.
func (q *Queue) Len() int { return len(q.tasks) }

// Empty reports whether nothing is pending.
func (q *Queue) Empty() bool { return len(q.tasks) == 0 }

// Pending returns the total bytes still awaiting delivery.
func (q *Queue) Pending() int {
	n := 0
	for _, t := range q.tasks {
		n += t.Remaining()
	}
	return n
}

// Flush writes as much queued data to w as it will take, head task
// first. A short write (or a timeout from a write deadline) leaves the
// partially sent task at the head with its offset advanced; the next
// Flush resumes the remaining bytes verbatim. Completion callbacks run
// synchronously as their tasks finish.
func (q *Queue) Flush(w interface{ Write([]byte) (int, error) }) error {
	for len(q.tasks) > 0 {
		t := q.tasks[0]
		for t.Remaining() > 0 {
			n, err := w.Write(t.data[t.done:])
			t.done += n
			if err != nil {
				if wouldBlock(err) {
					return nil
				}
				return err
			}
			if n == 0 {
				return nil
			}
		}
		q.tasks = q.tasks[1:]
		if t.OnDone != nil {
			t.OnDone()
		}
	}
	return nil
}

// wouldBlock reports whether err means "try again later" rather than a
// broken destination: a write-deadline timeout or EAGAIN from a
// non-blocking descriptor.
func wouldBlock(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
