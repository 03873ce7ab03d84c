// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package paramfeed

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Set is one concrete assignment of experiment parameter names to values.
type Set map[string]interface{}

func (s Set) clone() Set {
	res := make(Set, len(s))
	for k, v := range s {
		res[k] = v
	}
	return res
}

// Space is a finite sequence of parameter sets where the i-th set is a pure
// function of i. At must return a fresh Set on every call.
type Space interface {
	Len() int
	At(i int) Set
}

var ErrTooLarge = errors.New("parameter space too large")

type listing []Set

// Listing returns the explicit sets, in the order given.
func Listing(sets ...Set) Space {
	return listing(sets)
}

func (l listing) Len() int { return len(l) }

func (l listing) At(i int) Set { return l[i].clone() }

// Axis is one named list of values in a cartesian product.
type Axis struct {
	Name   string
	Values []interface{}
}

type product struct {
	axes []Axis
	size int
}

// Product returns every combination of the axes' values. The last axis varies
// fastest. With no axes, the product holds a single empty set; an axis with no
// values makes the product empty.
func Product(axes ...Axis) (Space, error) {
	seen := map[string]bool{}
	size := 1

	for _, a := range axes {
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate parameter in product: %v", a.Name)
		}
		seen[a.Name] = true

		n := len(a.Values)
		if n != 0 && size > math.MaxInt/n {
			return nil, ErrTooLarge
		}
		size *= n
	}

	return &product{axes: axes, size: size}, nil
}

func (p *product) Len() int { return p.size }

func (p *product) At(i int) Set {
	res := make(Set, len(p.axes))

	for k := len(p.axes) - 1; k >= 0; k-- {
		vals := p.axes[k].Values
		res[p.axes[k].Name] = vals[i%len(vals)]
		i /= len(vals)
	}

	return res
}

type chain struct {
	spaces []Space
	// offsets[i] is the global index of the first set of spaces[i]
	offsets []int
	size    int
}

// Chain concatenates spaces in the order given.
func Chain(spaces ...Space) (Space, error) {
	c := &chain{}

	for _, s := range spaces {
		n := s.Len()
		if n == 0 {
			continue
		}
		if c.size > math.MaxInt-n {
			return nil, ErrTooLarge
		}

		c.spaces = append(c.spaces, s)
		c.offsets = append(c.offsets, c.size)
		c.size += n
	}

	return c, nil
}

func (c *chain) Len() int { return c.size }

func (c *chain) At(i int) Set {
	// last space whose offset is <= i
	j := sort.Search(len(c.offsets), func(j int) bool {
		return c.offsets[j] > i
	}) - 1

	return c.spaces[j].At(i - c.offsets[j])
}
