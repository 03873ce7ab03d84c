// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package gpupool

import "fmt"

// State of a pool. Workers may still be finishing their last experiment while
// a pool is Draining, a Stopped pool has none left.
type State int

const (
	Created State = iota
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}

	return fmt.Sprintf("State(%d)", s)
}
