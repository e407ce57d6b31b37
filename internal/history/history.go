// Package history appends chat traffic to per-room and per-correspondent
// log files under the user's history directory. It is a passive
// collaborator: the session hands it (type, author, text) for every
// chat event and it has no further involvement.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"goicb/internal/proto"
	"goicb/util"
)

// file tracks one open log target. A file that failed to open is
// marked dead and never retried, so one bad path cannot spam warnings.
type file struct {
	f    *os.File
	dead bool
}

// Writer persists chat lines for a single session.
type Writer struct {
	root    string // e.g. ~/.goicb/logs
	host    string
	room    string
	enabled bool
	files   map[string]*file
	log     *util.Logger
	now     func() time.Time
}

// New returns a Writer rooted at dir. With enabled false every Save is
// a no-op, which keeps call sites free of conditionals.
func New(dir, host, room string, enabled bool, logger *util.Logger) *Writer {
	return &Writer{
		root:    dir,
		host:    host,
		room:    room,
		enabled: enabled,
		files:   make(map[string]*file),
		log:     logger,
		now:     time.Now,
	}
}

// pathFor maps a chat event to its log file: private messages go to a
// per-correspondent file, everything else to the room file.
func (w *Writer) pathFor(typ byte, who string) string {
	prefix, name := "room-", w.room
	if typ == proto.MsgPersonal {
		prefix, name = "private-", who
	}
	return filepath.Join(w.root, w.host, prefix+name+".log")
}

// Save appends one timestamped line for a chat event. Failures are
// logged and the offending file disabled; the session always survives.
func (w *Writer) Save(typ byte, who, text string) {
	if w == nil || !w.enabled {
		return
	}

	path := w.pathFor(typ, who)
	lf := w.files[path]
	if lf == nil {
		lf = &file{}
		w.files[path] = lf
	}
	if lf.dead {
		return
	}
	if lf.f == nil {
		if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
			w.log.Warn("history: %v", err)
			lf.dead = true
			return
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			w.log.Warn("history: can't open %s: %v", path, err)
			lf.dead = true
			return
		}
		lf.f = f
	}

	line := fmt.Sprintf("%s %s: %s\n",
		w.now().Format("2006-01-02 15:04:05"), who, text)
	if _, err := lf.f.WriteString(line); err != nil {
		w.log.Warn("history: can't write to %s: %v", path, err)
		lf.f.Close()
		lf.f = nil
	}
}

// Close flushes and closes every open log file.
func (w *Writer) Close() {
	if w == nil {
		return
	}
	for _, lf := range w.files {
		if lf.f != nil {
			lf.f.Close()
			lf.f = nil
		}
	}
}

// DefaultDir returns the per-user history root (~/.goicb/logs).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".goicb", "logs"), nil
}
