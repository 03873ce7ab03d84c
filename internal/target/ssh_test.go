// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package target

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// sshServer is an in-process ssh server. Commands of the form "exit N" exit
// with status N, "sleep" holds the session for a while, everything else
// echoes the command and exits with 0.
type sshServer struct {
	ln      net.Listener
	hostKey ssh.PublicKey
	config  *ssh.ServerConfig

	active int32
	peak   int32
}

func newSSHServer(t *testing.T, clientKey ssh.PublicKey) *sshServer {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), clientKey.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown key for %v", c.User())
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	s := &sshServer{
		ln:      ln,
		hostKey: signer.PublicKey(),
		config:  config,
	}

	go s.serve()

	return s
}

func (s *sshServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *sshServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		go func() {
			_, chans, reqs, err := ssh.NewServerConn(conn, s.config)
			if err != nil {
				conn.Close()
				return
			}
			go ssh.DiscardRequests(reqs)

			for nc := range chans {
				if nc.ChannelType() != "session" {
					nc.Reject(ssh.UnknownChannelType, "session only")
					continue
				}

				ch, requests, err := nc.Accept()
				if err != nil {
					continue
				}
				go s.session(ch, requests)
			}
		}()
	}
}

func (s *sshServer) session(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()

	for req := range requests {
		if req.Type != "exec" {
			req.Reply(false, nil)
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)

		n := atomic.AddInt32(&s.active, 1)
		for {
			peak := atomic.LoadInt32(&s.peak)
			if n <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, n) {
				break
			}
		}

		status := 0
		switch cmd := payload.Command; {
		case strings.HasPrefix(cmd, "exit "):
			status, _ = strconv.Atoi(strings.TrimPrefix(cmd, "exit "))
		case cmd == "sleep":
			time.Sleep(200 * time.Millisecond)
		default:
			fmt.Fprintln(ch, cmd)
			fmt.Fprintln(ch.Stderr(), "on stderr")
		}

		atomic.AddInt32(&s.active, -1)

		ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
		return
	}
}

// sshClient writes a client key and a known_hosts file trusting s and
// returns a connected transport.
func sshClient(t *testing.T) (*SSH, *sshServer) {
	t.Setenv("SSH_AUTH_SOCK", "")
	t.Setenv("ALL_PROXY", "")
	t.Setenv("all_proxy", "")

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatal(err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}

	server := newSSHServer(t, signer.PublicKey())

	dir := t.TempDir()

	identity := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(identity, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(server.port()))
	line := knownhosts.Line([]string{knownhosts.Normalize(addr)}, server.hostKey)

	known := filepath.Join(dir, "known_hosts")
	if err := os.WriteFile(known, []byte(line+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	s := NewSSH(SSHConfig{
		Host:          "127.0.0.1",
		Port:          server.port(),
		User:          "minigrid",
		IdentityFiles: []string{identity},
		KnownHosts:    known,
		Timeout:       5 * time.Second,
	})

	return s, server
}

func TestSSHRun(t *testing.T) {
	s, _ := sshClient(t)

	if err := s.Run("echo hi", nil, nil); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if !s.Connected() {
		t.Fatal("not connected")
	}

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	if err := s.Run("hello", stdout, stderr); err != nil {
		t.Fatal(err)
	}

	if stdout.String() != "hello\n" || stderr.String() != "on stderr\n" {
		t.Errorf("stdout = %q, stderr = %q", stdout, stderr)
	}

	err := s.Run("exit 3", new(bytes.Buffer), new(bytes.Buffer))

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Status != 3 {
		t.Errorf("expected exit status 3, got %v", err)
	}

	// the connection survives a failed command
	if err := s.Run("exit 0", nil, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if s.Connected() {
		t.Error("connected after close")
	}
}

func TestSSHRunConcurrent(t *testing.T) {
	const n = 8

	s, server := sshClient(t)

	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			cmd := "sleep"
			if i%2 == 1 {
				cmd = "exit " + strconv.Itoa(i)
			}

			err := s.Run(cmd, new(bytes.Buffer), new(bytes.Buffer))

			var exitErr *ExitError
			switch {
			case i%2 == 0 && err != nil:
				t.Errorf("run %v: unexpected error: %v", i, err)
			case i%2 == 1 && (!errors.As(err, &exitErr) || exitErr.Status != i):
				t.Errorf("run %v: expected exit status %v, got %v", i, i, err)
			}
		}(i)
	}
	wg.Wait()

	// the sleeping sessions overlapped on the one connection
	if peak := atomic.LoadInt32(&server.peak); peak < 2 {
		t.Errorf("expected concurrent sessions, peak was %v", peak)
	}
}

func TestSSHUnknownHost(t *testing.T) {
	s, _ := sshClient(t)

	// an empty known_hosts trusts nobody
	empty := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatal(err)
	}
	s.config.KnownHosts = empty

	if err := s.Connect(); err == nil {
		s.Close()
		t.Fatal("expected host key error")
	}
	if s.Connected() {
		t.Error("connected despite host key error")
	}
}
