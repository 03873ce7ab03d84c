// Copyright 2017-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package minilog

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

type logger interface {
	Println(...interface{})
}

type minilogger struct {
	// embed
	logger

	Level   Level
	Color   bool // print in color
	filters []string
}

// callerDepth is the number of frames between prologue and the caller of a
// package-level logging function.
const callerDepth = 4

func (l *minilogger) prologue(level Level, name string) string {
	var b strings.Builder

	if l.Color {
		b.WriteString(colorLine)
	}

	b.WriteString(level.tag())

	if name == "" {
		_, file, line, _ := runtime.Caller(callerDepth)
		b.WriteString(filepath.Base(file))
		b.WriteString(":")
		b.WriteString(strconv.Itoa(line))
	} else {
		b.WriteString(name)
	}
	b.WriteString(": ")

	if l.Color {
		b.WriteString(level.color())
	}

	return b.String()
}

func (l *minilogger) epilogue() string {
	if l.Color {
		return Reset
	}
	return ""
}

func (l *minilogger) filtered(msg string) bool {
	for _, f := range l.filters {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

func (l *minilogger) log(level Level, name, format string, arg ...interface{}) {
	msg := l.prologue(level, name) + fmt.Sprintf(format, arg...) + l.epilogue()
	if !l.filtered(msg) {
		l.Println(msg)
	}
}

func (l *minilogger) logln(level Level, name string, arg ...interface{}) {
	msg := l.prologue(level, name) + fmt.Sprint(arg...) + l.epilogue()
	if !l.filtered(msg) {
		l.Println(msg)
	}
}
