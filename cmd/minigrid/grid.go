// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sandia-minimega/minigrid/internal/config"
	"github.com/sandia-minimega/minigrid/internal/experiment"
	"github.com/sandia-minimega/minigrid/internal/gpupool"
	"github.com/sandia-minimega/minigrid/internal/journal"
	"github.com/sandia-minimega/minigrid/internal/paramfeed"
	"github.com/sandia-minimega/minigrid/internal/target"
	log "github.com/sandia-minimega/minigrid/pkg/minilog"
	"github.com/sandia-minimega/minigrid/pkg/ranges"
)

const Wildcard = "all"

// Grid is every target and pool of a sweep, all drawing from one generator.
type Grid struct {
	generator *experiment.Generator
	journal   *journal.Journal

	targets []*target.Target
	pools   []*gpupool.Pool

	// pools of each target, by target name
	byTarget map[string][]*gpupool.Pool
}

func NewGrid(params *config.Params, topo *config.Topology) (*Grid, error) {
	space, err := params.Space()
	if err != nil {
		return nil, err
	}

	tmpl, err := params.Template()
	if err != nil {
		return nil, err
	}

	g := &Grid{
		generator: experiment.NewGenerator(paramfeed.New(space), tmpl),
		byTarget:  make(map[string][]*gpupool.Pool),
	}

	for i := range topo.Servers {
		s := &topo.Servers[i]

		t, err := s.NewTarget()
		if err != nil {
			return nil, fmt.Errorf("server %v: %w", s.Name, err)
		}
		g.targets = append(g.targets, t)

		for _, gpu := range s.GPUs {
			p, err := gpupool.New(gpu.Name, gpu.Capacity, t, g.generator)
			if err != nil {
				return nil, fmt.Errorf("server %v gpu %v: %w", s.Name, gpu.Name, err)
			}

			g.pools = append(g.pools, p)
			g.byTarget[t.Name] = append(g.byTarget[t.Name], p)
		}
	}

	return g, nil
}

// SetJournal records every experiment to j, must be called before any pool
// starts.
func (g *Grid) SetJournal(j *journal.Journal) {
	g.journal = j

	for _, t := range g.targets {
		t.SetRecorder(j)
	}
}

func (g *Grid) Feed() *paramfeed.Feed {
	return g.generator.Feed()
}

func (g *Grid) Target(name string) *target.Target {
	for _, t := range g.targets {
		if t.Name == name {
			return t
		}
	}

	return nil
}

// Connect connects the target and starts its pools that have not started yet.
func (g *Grid) Connect(t *target.Target) error {
	if !t.Connected() {
		if err := t.Connect(); err != nil {
			return err
		}
	}

	for _, p := range g.byTarget[t.Name] {
		if p.Status().State != gpupool.Created {
			continue
		}

		if err := p.Start(); err != nil {
			log.Error("start %v: %v", p, err)
		}
	}

	return nil
}

// ConnectAll connects every target in parallel and starts the pools of the
// ones that connected. Targets that failed are logged and left for a later
// connect.
func (g *Grid) ConnectAll() (connected int) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, t := range g.targets {
		wg.Add(1)

		go func(t *target.Target) {
			defer wg.Done()

			if err := t.Connect(); err != nil {
				log.Error("%v", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()

			connected++
		}(t)
	}

	wg.Wait()

	// start the pools once every target had its chance so that the early ones
	// do not drain the feed on their own
	for _, t := range g.targets {
		if t.Connected() {
			g.Connect(t)
		}
	}

	return connected
}

// Pools returns the pools matching spec, which is either Wildcard or
// target[:device] where both parts may be ranges such as kn[1-4]:[0-1].
func (g *Grid) Pools(spec string) ([]*gpupool.Pool, error) {
	if spec == Wildcard {
		return g.pools, nil
	}

	host, device := spec, ""
	if i := strings.LastIndex(spec, ":"); i != -1 {
		host, device = spec[:i], spec[i+1:]
	}

	hosts, err := ranges.Expand(host)
	if err != nil {
		return nil, err
	}

	var devices []string
	if device != "" {
		if devices, err = ranges.Expand(device); err != nil {
			return nil, err
		}
	}

	var res []*gpupool.Pool

	for _, h := range hosts {
		pools, ok := g.byTarget[h]
		if !ok {
			return nil, fmt.Errorf("no such target: %v", h)
		}

		if devices == nil {
			res = append(res, pools...)
			continue
		}

		for _, d := range devices {
			var found bool
			for _, p := range pools {
				if p.Device == d {
					res = append(res, p)
					found = true
				}
			}

			if !found {
				return nil, fmt.Errorf("no such gpu: %v:%v", h, d)
			}
		}
	}

	return res, nil
}

// PoolNames lists the target:device names of every pool, sorted.
func (g *Grid) PoolNames() []string {
	var res []string
	for _, p := range g.pools {
		res = append(res, p.String())
	}

	sort.Strings(res)
	return res
}

// StopAll stops every pool, running ones drain.
func (g *Grid) StopAll() {
	for _, p := range g.pools {
		p.Stop()
	}
}

// StopIdle stops the pools that never started, so that Wait does not block on
// them.
func (g *Grid) StopIdle() {
	for _, p := range g.pools {
		if p.Status().State == gpupool.Created {
			p.Stop()
		}
	}
}

// Wait blocks until every pool stopped.
func (g *Grid) Wait() {
	for _, p := range g.pools {
		p.Wait()
	}
}

// Close disconnects every target and closes the journal.
func (g *Grid) Close() error {
	var errs []error

	for _, t := range g.targets {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %v: %w", t.Name, err))
		}
	}

	if g.journal != nil {
		if err := g.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}

	return errors.Join(errs...)
}
