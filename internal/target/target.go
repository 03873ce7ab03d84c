// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package target runs experiment commands on the machines hosting the
// devices. A Target pairs a machine's setup commands with a Transport that
// actually executes shell commands there.
package target

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sandia-minimega/minigrid/internal/experiment"
	log "github.com/sandia-minimega/minigrid/pkg/minilog"
)

// ErrNotConnected is returned when running an experiment on a target that has
// not been connected.
var ErrNotConnected = errors.New("target is not connected")

// ExitError reports that a command ran to completion with a non-zero status.
// Any other error from a Transport is a transport failure.
type ExitError struct {
	Status int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Status)
}

// Transport executes shell commands on one machine. Run must be safe to call
// from multiple goroutines at once.
type Transport interface {
	Connect() error
	Connected() bool

	// Run blocks until command completes, streaming its output to stdout and
	// stderr. A non-zero exit status is reported as *ExitError.
	Run(command string, stdout, stderr io.Writer) error

	Close() error
}

// Result describes one finished experiment.
type Result struct {
	Target     string
	Experiment experiment.Experiment
	// Command is the full command, including the prefixes
	Command string
	Start   time.Time
	End     time.Time
	// Status is the exit status, -1 if the command did not complete
	Status int
	Err    error
}

// Recorder receives every finished experiment.
type Recorder interface {
	Record(Result) error
}

type Target struct {
	Name     string
	Prefixes []string

	transport Transport
	recorder  Recorder
}

func New(name string, prefixes []string, transport Transport) *Target {
	return &Target{
		Name:      name,
		Prefixes:  prefixes,
		transport: transport,
	}
}

// SetRecorder must be called before any experiment starts.
func (t *Target) SetRecorder(r Recorder) {
	t.recorder = r
}

func (t *Target) String() string {
	return t.Name
}

func (t *Target) Connect() error {
	if err := t.transport.Connect(); err != nil {
		return fmt.Errorf("connect %v: %w", t.Name, err)
	}

	log.Info("connected to %v", t.Name)
	return nil
}

func (t *Target) Connected() bool {
	return t.transport.Connected()
}

func (t *Target) Close() error {
	return t.transport.Close()
}

// Command joins the prefixes and command so that each step only runs if the
// previous one succeeded.
func (t *Target) Command(command string) string {
	var parts []string
	for _, p := range t.Prefixes {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(append(parts, command), " && ")
}

// StartExperiment runs the experiment's command and blocks until it
// completes. The target must be connected.
func (t *Target) StartExperiment(e experiment.Experiment) error {
	if !t.Connected() {
		return ErrNotConnected
	}

	name := t.Name + ":" + e.Device
	command := t.Command(e.Command)

	log.Debug("%v running experiment %v: %v", name, e.ID, command)

	stdout := newLineLogger(log.INFO, name)
	stderr := newLineLogger(log.INFO, name+" stderr")

	res := Result{
		Target:     t.Name,
		Experiment: e,
		Command:    command,
		Start:      time.Now(),
		Status:     -1,
	}

	err := t.transport.Run(command, stdout, stderr)

	stdout.Flush()
	stderr.Flush()

	res.End = time.Now()
	res.Err = err

	var exitErr *ExitError
	switch {
	case err == nil:
		res.Status = 0
	case errors.As(err, &exitErr):
		res.Status = exitErr.Status
	}

	if t.recorder != nil {
		if err := t.recorder.Record(res); err != nil {
			log.Error("%v unable to record experiment %v: %v", name, e.ID, err)
		}
	}

	return err
}
