// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package experiment turns parameter sets into the commands run on devices.
package experiment

import (
	"fmt"

	"github.com/sandia-minimega/minigrid/internal/paramfeed"
)

// Experiment is one command to run on one device.
type Experiment struct {
	// ID is the position of the parameter set in the feed, starting at 0
	ID      int
	Device  string
	Params  paramfeed.Set
	Command string
}

// Generator pulls parameter sets from a shared feed and renders them.
type Generator struct {
	feed     *paramfeed.Feed
	template *Template
}

func NewGenerator(feed *paramfeed.Feed, template *Template) *Generator {
	return &Generator{
		feed:     feed,
		template: template,
	}
}

// Next takes the next parameter set from the feed and renders the command for
// device. It returns paramfeed.ErrExhausted unchanged when the feed is empty.
// The set is consumed even when rendering fails.
func (g *Generator) Next(device string) (Experiment, error) {
	id, params, err := g.feed.NextIndexed()
	if err != nil {
		return Experiment{}, err
	}

	e := Experiment{
		ID:     id,
		Device: device,
		Params: params,
	}

	e.Command, err = g.template.Render(params, device)
	if err != nil {
		return e, fmt.Errorf("parameter set %v %v: %w", id, params, err)
	}

	return e, nil
}

// Feed returns the feed the generator draws from.
func (g *Generator) Feed() *paramfeed.Feed {
	return g.feed
}
