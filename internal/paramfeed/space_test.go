// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package paramfeed

import (
	"fmt"
	"math"
	"testing"
)

func all(s Space) []Set {
	var res []Set
	for i := 0; i < s.Len(); i++ {
		res = append(res, s.At(i))
	}
	return res
}

func TestListing(t *testing.T) {
	l := Listing(
		Set{"param1": 2, "param2": "easy"},
		Set{"param1": 2, "param2": "hard"},
	)

	got := fmt.Sprint(all(l))
	want := "[map[param1:2 param2:easy] map[param1:2 param2:hard]]"
	if got != want {
		t.Errorf("got %v, expected %v", got, want)
	}

	// consumers own the sets they receive
	s := l.At(0)
	s["param1"] = 100
	if v := l.At(0)["param1"]; v != 2 {
		t.Errorf("listing was mutated through a yielded set: %v", v)
	}
}

func TestProductOrder(t *testing.T) {
	p, err := Product(
		Axis{Name: "lr", Values: []interface{}{0.1, 0.01}},
		Axis{Name: "level", Values: []interface{}{"easy", "hard", "super-hard"}},
	)
	if err != nil {
		t.Fatal(err)
	}

	if p.Len() != 6 {
		t.Fatalf("expected 6 combinations, got %v", p.Len())
	}

	want := []string{
		"map[level:easy lr:0.1]",
		"map[level:hard lr:0.1]",
		"map[level:super-hard lr:0.1]",
		"map[level:easy lr:0.01]",
		"map[level:hard lr:0.01]",
		"map[level:super-hard lr:0.01]",
	}

	for i, s := range all(p) {
		if got := fmt.Sprint(s); got != want[i] {
			t.Errorf("combination %v: got %v, expected %v", i, got, want[i])
		}
	}
}

func TestProductEdges(t *testing.T) {
	p, err := Product()
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 1 || len(p.At(0)) != 0 {
		t.Errorf("empty product should hold one empty set, got %v", all(p))
	}

	p, err = Product(
		Axis{Name: "a", Values: []interface{}{1, 2}},
		Axis{Name: "b"},
	)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 0 {
		t.Errorf("product with an empty axis should be empty, got %v", p.Len())
	}

	if _, err := Product(Axis{Name: "a"}, Axis{Name: "a"}); err == nil {
		t.Error("expected error for duplicate axis")
	}
}

type hugeSpace struct{}

func (hugeSpace) Len() int     { return math.MaxInt - 1 }
func (hugeSpace) At(i int) Set { return Set{"i": i} }

func TestTooLarge(t *testing.T) {
	big := make([]interface{}, 1<<16)

	_, err := Product(
		Axis{Name: "a", Values: big},
		Axis{Name: "b", Values: big},
		Axis{Name: "c", Values: big},
		Axis{Name: "d", Values: big},
	)
	if err != ErrTooLarge {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}

	if _, err := Chain(hugeSpace{}, hugeSpace{}); err != ErrTooLarge {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestChain(t *testing.T) {
	p, _ := Product(Axis{Name: "x", Values: []interface{}{1, 2}})
	empty, _ := Product(Axis{Name: "y"})

	c, err := Chain(
		Listing(Set{"x": 0}),
		empty,
		p,
		Listing(Set{"x": 3}),
	)
	if err != nil {
		t.Fatal(err)
	}

	if c.Len() != 4 {
		t.Fatalf("expected 4 sets, got %v", c.Len())
	}

	for i, s := range all(c) {
		if s["x"] != i {
			t.Errorf("set %v: got %v", i, s)
		}
	}
}
