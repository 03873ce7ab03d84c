// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package target

import (
	"bytes"
	"sync"

	log "github.com/sandia-minimega/minigrid/pkg/minilog"
)

// lineLogger is an io.Writer that logs every complete line written to it.
// Carriage returns end a line too so that progress bars do not pile up.
type lineLogger struct {
	level log.Level
	name  string

	mu  sync.Mutex
	buf []byte
}

func newLineLogger(level log.Level, name string) *lineLogger {
	return &lineLogger{
		level: level,
		name:  name,
	}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, p...)

	for {
		i := bytes.IndexAny(l.buf, "\r\n")
		if i == -1 {
			break
		}

		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}

	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.emit(l.buf)
	l.buf = nil
}

func (l *lineLogger) emit(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	log.Log(l.level, l.name, "%s", line)
}
