// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package target

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ziutek/telnet"
)

const DefaultTelnetPort = 23

// The marker is echoed with its halves quoted apart so that the terminal echo
// of the command line never matches it.
const (
	telnetMarker     = "__minigrid_"
	telnetMarkerEcho = `"__minigrid""_`
)

type TelnetConfig struct {
	Host     string
	Port     int
	User     string
	Password string

	// Timeout bounds dialing and logging in
	Timeout time.Duration
}

// Telnet runs commands through a login shell on a telnet connection. There is
// a single shell per connection so commands run one at a time.
type Telnet struct {
	config TelnetConfig

	// mu serializes use of conn
	mu   sync.Mutex
	conn *telnet.Conn
}

func NewTelnet(config TelnetConfig) *Telnet {
	if config.Port == 0 {
		config.Port = DefaultTelnetPort
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Telnet{config: config}
}

func (t *Telnet) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))

	conn, err := telnet.DialTimeout("tcp", addr, t.config.Timeout)
	if err != nil {
		return err
	}

	conn.SetUnixWriteMode(true)

	if err := t.login(conn); err != nil {
		conn.Close()
		return fmt.Errorf("login: %v", err)
	}

	t.conn = conn
	return nil
}

func (t *Telnet) login(conn *telnet.Conn) error {
	conn.SetReadDeadline(time.Now().Add(t.config.Timeout))
	defer conn.SetReadDeadline(time.Time{})

	if t.config.User != "" {
		if _, err := conn.ReadUntil("login: "); err != nil {
			return err
		}
		if _, err := conn.Write([]byte(t.config.User + "\n")); err != nil {
			return err
		}
		if _, err := conn.ReadUntil("assword: "); err != nil {
			return err
		}
		if _, err := conn.Write([]byte(t.config.Password + "\n")); err != nil {
			return err
		}
	}

	// wait for the shell to be ready
	if _, err := conn.Write([]byte("stty -echo; echo " + telnetMarkerEcho + `ready"` + "\n")); err != nil {
		return err
	}
	if err := conn.SkipUntil(telnetMarker + "ready"); err != nil {
		return err
	}
	_, err := conn.ReadString('\n')
	return err
}

func (t *Telnet) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn != nil
}

// Run sends the command followed by an echo of its exit status and reads
// output until that status comes back. Output from telnet is a single stream,
// stderr is unused.
func (t *Telnet) Run(command string, stdout, stderr io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return ErrNotConnected
	}

	line := fmt.Sprintf("( %v ); echo %vexit:$?\"\n", command, telnetMarkerEcho)
	if _, err := t.conn.Write([]byte(line)); err != nil {
		t.drop()
		return err
	}

	out, err := t.conn.ReadUntil(telnetMarker + "exit:")
	if err != nil {
		t.drop()
		return err
	}
	stdout.Write(bytes.TrimSuffix(out, []byte(telnetMarker+"exit:")))

	s, err := t.conn.ReadString('\n')
	if err != nil {
		t.drop()
		return err
	}

	status, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("unable to read exit status")
	}

	if status != 0 {
		return &ExitError{Status: status}
	}
	return nil
}

// drop discards a broken connection, must hold mu.
func (t *Telnet) drop() {
	t.conn.Close()
	t.conn = nil
}

func (t *Telnet) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	return err
}
