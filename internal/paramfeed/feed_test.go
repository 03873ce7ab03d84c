// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package paramfeed

import (
	"sync"
	"testing"
)

func numbered(n int) Space {
	var sets []Set
	for i := 0; i < n; i++ {
		sets = append(sets, Set{"id": i})
	}
	return Listing(sets...)
}

func TestFeedSequential(t *testing.T) {
	f := New(numbered(3))

	for i := 0; i < 3; i++ {
		s, err := f.Next()
		if err != nil {
			t.Fatalf("unexpected error at %v: %v", i, err)
		}
		if s["id"] != i {
			t.Errorf("expected id %v, got %v", i, s["id"])
		}
	}

	// stays exhausted
	for i := 0; i < 5; i++ {
		if _, err := f.Next(); err != ErrExhausted {
			t.Errorf("expected ErrExhausted, got %v", err)
		}
	}

	if f.Consumed() != 3 || !f.Exhausted() {
		t.Errorf("consumed = %v, exhausted = %v", f.Consumed(), f.Exhausted())
	}
}

func TestFeedEmpty(t *testing.T) {
	c, _ := Chain()
	f := New(c)

	if _, err := f.Next(); err != ErrExhausted {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestFeedConcurrent(t *testing.T) {
	const n = 10000
	const consumers = 16

	f := New(numbered(n))

	var wg sync.WaitGroup
	got := make([][]int, consumers)

	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()

			for {
				s, err := f.Next()
				if err == ErrExhausted {
					return
				} else if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				got[c] = append(got[c], s["id"].(int))
			}
		}(c)
	}

	wg.Wait()

	seen := make([]int, n)
	for c := range got {
		for i, id := range got[c] {
			seen[id]++

			// each consumer sees sets in production order
			if i > 0 && got[c][i-1] >= id {
				t.Errorf("consumer %v got %v after %v", c, id, got[c][i-1])
			}
		}
	}

	for id, count := range seen {
		if count != 1 {
			t.Errorf("set %v delivered %v times", id, count)
		}
	}

	if _, err := f.Next(); err != ErrExhausted {
		t.Errorf("expected ErrExhausted after %v sets, got %v", n, err)
	}
}
