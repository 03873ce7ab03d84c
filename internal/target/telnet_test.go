// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package target

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeShell accepts one telnet connection, walks through the login and then
// answers each command line with canned output and the exit status marker.
// Commands containing "exit N" report status N.
func fakeShell(t *testing.T, ln net.Listener) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)

	conn.Write([]byte("login: "))
	if _, err := r.ReadString('\n'); err != nil {
		return
	}
	conn.Write([]byte("Password: "))
	if _, err := r.ReadString('\n'); err != nil {
		return
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}

		switch {
		case strings.Contains(line, "ready"):
			conn.Write([]byte("__minigrid_ready\r\n"))
		case strings.Contains(line, "exit:$?"):
			status := 0
			if i := strings.Index(line, "exit "); i != -1 {
				status, _ = strconv.Atoi(line[i+5 : i+6])
			}
			conn.Write([]byte("hello from telnet\r\n__minigrid_exit:" + strconv.Itoa(status) + "\r\n"))
		}
	}
}

func TestTelnetRun(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to listen: %v", err)
	}
	defer ln.Close()

	go fakeShell(t, ln)

	addr := ln.Addr().(*net.TCPAddr)

	tn := NewTelnet(TelnetConfig{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		User:     "user",
		Password: "password",
		Timeout:  5 * time.Second,
	})

	if err := tn.Connect(); err != nil {
		t.Fatal(err)
	}
	defer tn.Close()

	if !tn.Connected() {
		t.Fatal("expected to be connected")
	}

	out := new(bytes.Buffer)
	if err := tn.Run("echo hello", out, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "hello from telnet") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Contains(out.String(), "__minigrid") {
		t.Errorf("marker leaked into output: %q", out)
	}

	err = tn.Run("false || exit 5", new(bytes.Buffer), nil)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Status != 5 {
		t.Errorf("expected exit status 5, got %v", err)
	}
}

func TestTelnetNotConnected(t *testing.T) {
	tn := NewTelnet(TelnetConfig{Host: "127.0.0.1"})

	if err := tn.Run("true", new(bytes.Buffer), nil); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}
