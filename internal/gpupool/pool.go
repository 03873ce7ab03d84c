// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package gpupool runs experiments on a device with an elastic number of
// workers. Each worker repeatedly takes the next experiment from a shared
// source and runs it to completion on the device's target. The number of
// workers can be changed at any time; shrinking never interrupts a running
// experiment, surplus workers exit when they finish their current one.
package gpupool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sandia-minimega/minigrid/internal/experiment"
	"github.com/sandia-minimega/minigrid/internal/paramfeed"
	"github.com/sandia-minimega/minigrid/internal/target"
	log "github.com/sandia-minimega/minigrid/pkg/minilog"
)

var (
	ErrAlreadyStarted  = errors.New("pool already started")
	ErrStopped         = errors.New("pool is stopped")
	ErrInvalidCapacity = errors.New("capacity must be >= 0")
)

// Source hands out the experiments to run on a device.
type Source interface {
	Next(device string) (experiment.Experiment, error)
}

// Executor runs an experiment and blocks until it completes.
type Executor interface {
	StartExperiment(experiment.Experiment) error
	String() string
}

type worker struct {
	id      int
	started time.Time

	// experiment in flight, -1 when between experiments
	current int
}

// Pool is the set of workers running experiments on one device.
type Pool struct {
	Device string

	target Executor
	source Source

	done chan struct{}

	// guards below
	mu          sync.Mutex
	drained     *sync.Cond // broadcast when the last worker exits
	state       State
	capacity    int
	pendingKill int
	workers     map[int]*worker
	nextID      int
	completed   int
	failed      int
}

// New creates a pool for device with capacity workers. No worker runs until
// Start is called.
func New(device string, capacity int, target Executor, source Source) (*Pool, error) {
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}

	p := &Pool{
		Device:   device,
		target:   target,
		source:   source,
		done:     make(chan struct{}),
		state:    Created,
		capacity: capacity,
		workers:  make(map[int]*worker),
	}
	p.drained = sync.NewCond(&p.mu)

	return p, nil
}

func (p *Pool) String() string {
	return p.target.String() + ":" + p.Device
}

// Start launches the supervisor which spawns the initial workers and waits
// for the pool to drain. A pool can only be started once.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.state == Stopped:
		return ErrStopped
	case p.state != Created || len(p.workers) > 0:
		return ErrAlreadyStarted
	}

	p.state = Running

	log.Info("starting %v with %v workers", p, p.capacity)

	for i := 0; i < p.capacity; i++ {
		p.spawn()
	}

	go p.supervise()

	return nil
}

// Resize changes the number of workers. Growing spawns the new workers right
// away. Shrinking lets the surplus workers exit as they finish their current
// experiment. Calls to Resize and Stop must not overlap.
func (p *Pool) Resize(capacity int) error {
	if capacity < 0 {
		return ErrInvalidCapacity
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Draining || p.state == Stopped {
		return ErrStopped
	}

	log.Info("resizing %v from %v to %v workers", p, p.capacity, capacity)

	if p.state == Running {
		if capacity > p.capacity {
			for i := p.capacity; i < capacity; i++ {
				p.spawn()
			}
		} else {
			p.pendingKill += p.capacity - capacity
		}
	}

	p.capacity = capacity

	return nil
}

// Stop asks every live worker to exit after its current experiment. Stop
// does not wait, see Wait.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Created:
		p.state = Stopped
		close(p.done)
	case Running:
		log.Info("stopping %v, waiting on %v workers", p, len(p.workers))

		p.pendingKill = len(p.workers)
		p.state = Draining
	}
}

// Wait blocks until the pool is stopped.
func (p *Pool) Wait() {
	<-p.done
}

// Done is closed once the pool is stopped.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// spawn starts a new worker, must hold mu.
func (p *Pool) spawn() {
	w := &worker{
		id:      p.nextID,
		started: time.Now(),
		current: -1,
	}
	p.nextID++

	p.workers[w.id] = w

	go p.run(w)
}

// supervise waits until there are no live workers. Workers are only added
// while holding mu and the count is checked while holding mu, so a worker
// added while waiting is always waited for.
func (p *Pool) supervise() {
	p.mu.Lock()

	for len(p.workers) > 0 {
		p.drained.Wait()
	}

	p.state = Stopped
	p.pendingKill = 0
	completed := p.completed

	p.mu.Unlock()

	log.Info("%v stopped after %v experiments", p, completed)

	close(p.done)
}

// claimKill returns true if the worker should exit to bring the pool down to
// its capacity.
func (p *Pool) claimKill() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pendingKill > 0 {
		p.pendingKill--
		return true
	}

	return false
}

func (p *Pool) run(w *worker) {
	defer p.exit(w)

	name := fmt.Sprintf("%v worker %v", p, w.id)

	for {
		if p.claimKill() {
			log.Debug("%v exiting, pool shrunk", name)
			return
		}

		e, err := p.source.Next(p.Device)
		if errors.Is(err, paramfeed.ErrExhausted) {
			log.Debug("%v exiting, no more experiments", name)
			return
		} else if err != nil {
			log.Error("%v skipping experiment: %v", name, err)
			continue
		}

		p.setCurrent(w, e.ID)

		err = p.target.StartExperiment(e)

		var exitErr *target.ExitError
		switch {
		case err == nil:
			p.finished(w, false)
		case errors.As(err, &exitErr):
			log.Warn("%v experiment %v failed: %v", name, e.ID, err)
			p.finished(w, true)
		default:
			// the connection is unusable, running more experiments would
			// only burn through the feed
			log.Error("%v experiment %v lost, exiting: %v", name, e.ID, err)
			p.finished(w, true)
			p.lost()
			return
		}
	}
}

func (p *Pool) setCurrent(w *worker, id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.current = id
}

func (p *Pool) finished(w *worker, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.current = -1
	p.completed++
	if failed {
		p.failed++
	}
}

// lost accounts for a worker exiting on a transport failure. Its exit serves
// a pending kill if there is one, otherwise the capacity shrinks by one so that
// later resizes never aim kills at workers that are already gone.
func (p *Pool) lost() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pendingKill > 0 {
		p.pendingKill--
	} else if p.capacity > 0 {
		p.capacity--
	}
}

func (p *Pool) exit(w *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.workers, w.id)

	log.Debug("%v worker %v exited after %v", p, w.id, time.Since(w.started).Round(time.Millisecond))

	if len(p.workers) == 0 {
		p.drained.Broadcast()
	}
}

// Status is a snapshot of a pool.
type Status struct {
	Target      string
	Device      string
	State       State
	Capacity    int
	Live        int
	PendingKill int
	Completed   int
	Failed      int

	// Running lists the IDs of the experiments in flight
	Running []int
}

func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		Target:      p.target.String(),
		Device:      p.Device,
		State:       p.state,
		Capacity:    p.capacity,
		Live:        len(p.workers),
		PendingKill: p.pendingKill,
		Completed:   p.completed,
		Failed:      p.failed,
	}

	for _, w := range p.workers {
		if w.current != -1 {
			s.Running = append(s.Running, w.current)
		}
	}
	sort.Ints(s.Running)

	return s
}
