// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package paramfeed distributes the parameter sets of an experiment space to
// any number of concurrent consumers. Every set is handed out exactly once, in
// the order the space produces them.
package paramfeed

import (
	"errors"
	"sync"
)

// ErrExhausted is returned by Feed.Next once every set has been handed out.
var ErrExhausted = errors.New("parameter feed exhausted")

// Feed is a cursor over a Space, shared by every worker of every pool.
type Feed struct {
	space Space

	// guards below
	mu   sync.Mutex
	next int
}

func New(space Space) *Feed {
	return &Feed{space: space}
}

// Next returns the next set in production order or ErrExhausted. Once
// exhausted, the feed stays exhausted.
func (f *Feed) Next() (Set, error) {
	_, s, err := f.NextIndexed()
	return s, err
}

// NextIndexed is Next but also returns the position of the set in the feed.
func (f *Feed) NextIndexed() (int, Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.next >= f.space.Len() {
		return -1, nil, ErrExhausted
	}

	i := f.next
	f.next++

	return i, f.space.At(i), nil
}

// Len returns the total number of sets in the feed.
func (f *Feed) Len() int {
	return f.space.Len()
}

// Consumed returns how many sets have been handed out so far.
func (f *Feed) Consumed() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.next
}

func (f *Feed) Exhausted() bool {
	return f.Consumed() >= f.space.Len()
}
