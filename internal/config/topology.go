// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sandia-minimega/minigrid/internal/target"
	"github.com/sandia-minimega/minigrid/pkg/ranges"

	"gopkg.in/yaml.v3"
)

// Transports
const (
	SSH    = "ssh"
	Local  = "local"
	Telnet = "telnet"
)

// Topology lists the servers and the GPUs on each of them.
type Topology struct {
	Servers []Server `yaml:"servers"`
}

type Server struct {
	// Name may be a range such as kn[1-4], describing one server per name
	Name string `yaml:"name"`

	// Address to connect to, defaults to Name
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Transport string `yaml:"transport"`

	// Prefixes run before every command, in order
	Prefixes []string `yaml:"prefixes"`
	// older files spell it prefixs
	Prefixs []string `yaml:"prefixs"`

	// ssh
	Identity   []string `yaml:"identity"`
	KnownHosts string   `yaml:"known_hosts"`
	Insecure   bool     `yaml:"insecure"`

	// telnet
	Password string `yaml:"password"`

	// local
	Shell string `yaml:"shell"`
	PTY   bool   `yaml:"pty"`

	Timeout time.Duration `yaml:"timeout"`

	GPUs []GPU `yaml:"gpus"`
}

type GPU struct {
	// Name may be a range such as [0-3]
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	// older files spell it max_xp
	MaxXP int `yaml:"max_xp"`
}

// LoadTopology reads a topology file, expands the ranges and validates the
// result.
func LoadTopology(path string) (*Topology, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	t, err := ParseTopology(b)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}

	return t, nil
}

func ParseTopology(b []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, err
	}

	if err := t.expand(); err != nil {
		return nil, err
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return &t, nil
}

// expand replaces ranged names by one entry per name and folds the older
// spellings into the current ones.
func (t *Topology) expand() error {
	var servers []Server

	for _, s := range t.Servers {
		names, err := ranges.Expand(s.Name)
		if err != nil {
			return fmt.Errorf("server %v: %w", s.Name, err)
		}

		if len(names) > 1 && s.Address != "" {
			return fmt.Errorf("server %v: address cannot be shared by a range", s.Name)
		}

		if len(s.Prefixes) == 0 {
			s.Prefixes = s.Prefixs
		}
		s.Prefixs = nil

		var gpus []GPU
		for _, g := range s.GPUs {
			devices, err := ranges.Expand(g.Name)
			if err != nil {
				return fmt.Errorf("server %v gpu %v: %w", s.Name, g.Name, err)
			}

			if g.Capacity == 0 {
				g.Capacity = g.MaxXP
			}
			g.MaxXP = 0

			for _, d := range devices {
				g.Name = d
				gpus = append(gpus, g)
			}
		}

		for _, name := range names {
			s2 := s
			s2.Name = name
			s2.GPUs = append([]GPU(nil), gpus...)

			servers = append(servers, s2)
		}
	}

	t.Servers = servers

	return nil
}

func (t *Topology) Validate() error {
	if len(t.Servers) == 0 {
		return errors.New("no servers")
	}

	seen := map[string]bool{}

	for _, s := range t.Servers {
		if s.Name == "" {
			return errors.New("server without a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate server: %v", s.Name)
		}
		seen[s.Name] = true

		switch s.Transport {
		case "", SSH, Local, Telnet:
		default:
			return fmt.Errorf("server %v: unknown transport: %v", s.Name, s.Transport)
		}

		if s.Port < 0 || s.Port > 65535 {
			return fmt.Errorf("server %v: invalid port: %v", s.Name, s.Port)
		}

		gpus := map[string]bool{}

		for _, g := range s.GPUs {
			if g.Name == "" {
				return fmt.Errorf("server %v: gpu without a name", s.Name)
			}
			if gpus[g.Name] {
				return fmt.Errorf("server %v: duplicate gpu: %v", s.Name, g.Name)
			}
			gpus[g.Name] = true

			if g.Capacity < 0 {
				return fmt.Errorf("server %v gpu %v: capacity must be >= 0", s.Name, g.Name)
			}
		}
	}

	return nil
}

// NumGPUs counts the GPUs across all servers.
func (t *Topology) NumGPUs() int {
	var n int
	for _, s := range t.Servers {
		n += len(s.GPUs)
	}
	return n
}

func (s *Server) address() string {
	if s.Address != "" {
		return s.Address
	}
	return s.Name
}

// NewTransport creates the unconnected transport for the server.
func (s *Server) NewTransport() (target.Transport, error) {
	switch s.Transport {
	case "", SSH:
		return target.NewSSH(target.SSHConfig{
			Host:            s.address(),
			Port:            s.Port,
			User:            s.User,
			IdentityFiles:   s.Identity,
			KnownHosts:      s.KnownHosts,
			InsecureHostKey: s.Insecure,
			Timeout:         s.Timeout,
		}), nil
	case Local:
		return target.NewLocal(s.Shell, s.PTY), nil
	case Telnet:
		return target.NewTelnet(target.TelnetConfig{
			Host:     s.address(),
			Port:     s.Port,
			User:     s.User,
			Password: s.Password,
			Timeout:  s.Timeout,
		}), nil
	}

	return nil, fmt.Errorf("unknown transport: %v", s.Transport)
}

// NewTarget creates the unconnected target for the server.
func (s *Server) NewTarget() (*target.Target, error) {
	transport, err := s.NewTransport()
	if err != nil {
		return nil, err
	}

	return target.New(s.Name, s.Prefixes, transport), nil
}
