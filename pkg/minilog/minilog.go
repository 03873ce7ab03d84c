// Copyright 2012-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package minilog extends Go's logging functionality to allow for multiple
// loggers, each one with their own logging level. To use minilog, call
// AddLogger() to set up each desired logger (or Init() to set them up from
// the command line flags), then use the package-level logging functions to
// send messages to all defined loggers.
//
// The logging functions are safe to call from any number of goroutines.
package minilog

import (
	"errors"
	"flag"
	"fmt"
	"io"
	golog "log"
	"os"
	"sort"
	"sync"
)

var (
	LevelFlag   = WARN
	f_verbose   = flag.Bool("verbose", true, "log on stderr")
	f_logfile   = flag.String("logfile", "", "also log to file")
	f_logfilter = flag.String("filter", "", "filter out log messages containing this string")
)

func init() {
	flag.Var(&LevelFlag, "level", "set log level: [debug, info, warn, error, fatal]")
}

var (
	loggers   = map[string]*minilogger{}
	loggersMu sync.RWMutex
)

// Init sets up logging based on the command line flags: a colored stderr
// logger when -verbose is set and a file logger when -logfile is set. Must be
// called after flag.Parse().
func Init() {
	if *f_verbose {
		AddLogger("stderr", os.Stderr, LevelFlag, true)
	}

	if *f_logfile != "" {
		f, err := os.OpenFile(*f_logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660)
		if err != nil {
			Fatal("unable to open logfile: %v", err)
		}
		AddLogger("file", f, LevelFlag, false)
	}

	if *f_logfilter != "" {
		for _, name := range Loggers() {
			AddFilter(name, *f_logfilter)
		}
	}
}

// AddLogger adds a logger set to log only events at level specified or higher.
// output: io.Writer instance to which to log (can be os.Stderr or os.Stdout)
// level:  one of the minilogging levels defined as a constant
func AddLogger(name string, output io.Writer, level Level, color bool) {
	addLogger(name, golog.New(output, "", golog.LstdFlags), level, color)
}

// AddRing adds a logger that keeps the most recent messages in memory.
func AddRing(name string, r *Ring, level Level) {
	addLogger(name, r, level, false)
}

func addLogger(name string, l logger, level Level, color bool) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	loggers[name] = &minilogger{logger: l, Level: level, Color: color}
}

func DelLogger(name string) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	delete(loggers, name)
}

// Loggers returns the sorted names of the registered loggers.
func Loggers() []string {
	loggersMu.RLock()
	defer loggersMu.RUnlock()

	res := make([]string, 0, len(loggers))
	for name := range loggers {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func SetLevel(name string, level Level) error {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	l, ok := loggers[name]
	if !ok {
		return errors.New("logger does not exist")
	}
	l.Level = level
	return nil
}

func GetLevel(name string) (Level, error) {
	loggersMu.RLock()
	defer loggersMu.RUnlock()

	l, ok := loggers[name]
	if !ok {
		return -1, errors.New("logger does not exist")
	}
	return l.Level, nil
}

// AddFilter drops messages containing filter from the named logger.
func AddFilter(name, filter string) error {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	l, ok := loggers[name]
	if !ok {
		return errors.New("logger does not exist")
	}
	l.filters = append(l.filters, filter)
	return nil
}

// WillLog returns true if at least one logger would emit a message at level.
func WillLog(level Level) bool {
	loggersMu.RLock()
	defer loggersMu.RUnlock()

	for _, l := range loggers {
		if l.Level <= level {
			return true
		}
	}
	return false
}

// Log emits a message tagged with name rather than the caller's file and line.
func Log(level Level, name, format string, arg ...interface{}) {
	dispatch(level, name, format, arg...)
}

func dispatch(level Level, name, format string, arg ...interface{}) {
	loggersMu.RLock()
	defer loggersMu.RUnlock()

	for _, l := range loggers {
		if l.Level <= level {
			l.log(level, name, format, arg...)
		}
	}
}

func dispatchln(level Level, arg ...interface{}) {
	loggersMu.RLock()
	defer loggersMu.RUnlock()

	for _, l := range loggers {
		if l.Level <= level {
			l.logln(level, "", arg...)
		}
	}
}

func Debug(format string, arg ...interface{}) { dispatch(DEBUG, "", format, arg...) }
func Info(format string, arg ...interface{})  { dispatch(INFO, "", format, arg...) }
func Warn(format string, arg ...interface{})  { dispatch(WARN, "", format, arg...) }
func Error(format string, arg ...interface{}) { dispatch(ERROR, "", format, arg...) }

func Fatal(format string, arg ...interface{}) {
	dispatch(FATAL, "", format, arg...)
	exit(format, arg...)
}

func Debugln(arg ...interface{}) { dispatchln(DEBUG, arg...) }
func Infoln(arg ...interface{})  { dispatchln(INFO, arg...) }
func Warnln(arg ...interface{})  { dispatchln(WARN, arg...) }
func Errorln(arg ...interface{}) { dispatchln(ERROR, arg...) }

func Fatalln(arg ...interface{}) {
	dispatchln(FATAL, arg...)
	exit("%v", fmt.Sprint(arg...))
}

// exit makes sure fatal messages are seen even when no logger is set up.
func exit(format string, arg ...interface{}) {
	if !WillLog(FATAL) {
		fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", arg...)
	}
	os.Exit(1)
}
