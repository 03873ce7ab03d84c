// Copyright 2012-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package target

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"github.com/kr/pty"
)

const DefaultShell = "/bin/sh"

// Local runs commands on the machine minigrid runs on, one process per
// command.
type Local struct {
	Shell string

	// PTY runs commands attached to a pseudo terminal, which keeps tools that
	// only line buffer interactive output from holding it back. stdout and
	// stderr are merged onto stdout.
	PTY bool

	// guards below
	mu        sync.Mutex
	connected bool
}

func NewLocal(shell string, usePTY bool) *Local {
	if shell == "" {
		shell = DefaultShell
	}

	return &Local{
		Shell: shell,
		PTY:   usePTY,
	}
}

// Connect checks that the shell exists.
func (l *Local) Connect() error {
	if _, err := exec.LookPath(l.Shell); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.connected = true
	return nil
}

func (l *Local) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.connected
}

func (l *Local) Run(command string, stdout, stderr io.Writer) error {
	cmd := exec.Command(l.Shell, "-c", command)

	var err error
	if l.PTY {
		err = runPTY(cmd, stdout)
	} else {
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		err = cmd.Run()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Status: exitStatus(exitErr)}
	}

	return err
}

// exitStatus follows the shell convention of 128+signal for processes killed
// by a signal, ExitCode reports those as -1.
func exitStatus(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}

	return err.ExitCode()
}

func runPTY(cmd *exec.Cmd, stdout io.Writer) error {
	f, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}
	defer f.Close()

	// reading the pty fails with EIO once the child exits, not an error
	io.Copy(stdout, f)

	return cmd.Wait()
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.connected = false
	return nil
}
