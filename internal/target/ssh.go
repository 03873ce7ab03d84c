// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package target

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	log "github.com/sandia-minimega/minigrid/pkg/minilog"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/net/proxy"
)

const DefaultSSHPort = 22

type SSHConfig struct {
	Host string
	Port int
	User string

	// IdentityFiles are private keys to offer in addition to the ssh-agent
	// keys. Defaults to the usual keys in ~/.ssh.
	IdentityFiles []string

	// KnownHosts defaults to ~/.ssh/known_hosts
	KnownHosts string

	// InsecureHostKey skips host key verification
	InsecureHostKey bool

	// Timeout bounds the connection handshake only
	Timeout time.Duration
}

// SSH runs commands over a single SSH connection, one session per command.
// Sessions are multiplexed by the connection so concurrent Run calls do not
// wait on each other.
type SSH struct {
	config SSHConfig

	// guards below
	mu     sync.Mutex
	client *ssh.Client
}

func NewSSH(config SSHConfig) *SSH {
	if config.Port == 0 {
		config.Port = DefaultSSHPort
	}
	if config.User == "" {
		config.User = os.Getenv("USER")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &SSH{config: config}
}

func (s *SSH) addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

func (s *SSH) clientConfig() (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:    s.config.User,
		Timeout: s.config.Timeout,
	}

	if s.config.InsecureHostKey {
		log.Warn("host key verification disabled for %v", s.config.Host)
		config.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		path := s.config.KnownHosts
		if path == "" {
			path = filepath.Join(homeDir(), ".ssh", "known_hosts")
		}

		cb, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("known hosts: %v", err)
		}
		config.HostKeyCallback = cb
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			config.Auth = append(config.Auth, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			log.Warn("unable to reach ssh-agent: %v", err)
		}
	}

	if signers := s.signers(); len(signers) > 0 {
		config.Auth = append(config.Auth, ssh.PublicKeys(signers...))
	}

	if len(config.Auth) == 0 {
		return nil, errors.New("no ssh-agent and no usable identity files")
	}

	return config, nil
}

func (s *SSH) signers() []ssh.Signer {
	files := s.config.IdentityFiles
	explicit := len(files) > 0
	if !explicit {
		for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
			files = append(files, filepath.Join(homeDir(), ".ssh", name))
		}
	}

	var res []ssh.Signer

	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			if explicit {
				log.Warn("unable to read identity file: %v", err)
			}
			continue
		}

		signer, err := ssh.ParsePrivateKey(b)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				log.Debug("skipping passphrase protected key %v, use ssh-agent", f)
			} else {
				log.Warn("unable to parse identity file %v: %v", f, err)
			}
			continue
		}

		res = append(res, signer)
	}

	return res
}

// Connect dials the host, through the proxy from ALL_PROXY if one is set.
func (s *SSH) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	config, err := s.clientConfig()
	if err != nil {
		return err
	}

	dialer := proxy.FromEnvironmentUsing(&net.Dialer{Timeout: s.config.Timeout})

	conn, err := dialer.Dial("tcp", s.addr())
	if err != nil {
		return err
	}

	// only bound the handshake, commands may run for days
	conn.SetDeadline(time.Now().Add(s.config.Timeout))

	c, chans, reqs, err := ssh.NewClientConn(conn, s.addr(), config)
	if err != nil {
		conn.Close()
		return err
	}

	conn.SetDeadline(time.Time{})

	client := ssh.NewClient(c, chans, reqs)
	s.client = client

	go func() {
		err := client.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.client == client {
			log.Warn("lost connection to %v: %v", s.config.Host, err)
			s.client = nil
		}
	}()

	return nil
}

func (s *SSH) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client != nil
}

func (s *SSH) Run(command string, stdout, stderr io.Writer) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return ErrNotConnected
	}

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	err = session.Run(command)

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Status: exitErr.ExitStatus()}
	}

	return err
}

func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	err := s.client.Close()
	s.client = nil
	return err
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
