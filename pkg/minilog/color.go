// Copyright 2017-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package minilog

// ANSI escapes used when a logger has color enabled.
const (
	Reset    = "\x1b[0m"
	FgRed    = "\x1b[31m"
	FgGreen  = "\x1b[32m"
	FgYellow = "\x1b[33m"
	FgBlue   = "\x1b[34m"
)

const colorLine = FgYellow

func (l Level) color() string {
	switch l {
	case DEBUG:
		return FgBlue
	case INFO:
		return FgGreen
	case WARN:
		return FgYellow
	}
	return FgRed
}
