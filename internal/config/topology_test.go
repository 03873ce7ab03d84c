// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/sandia-minimega/minigrid/internal/target"
)

const topologyYAML = `
servers:
  - name: kn[1-2]
    user: alice
    timeout: 10s
    prefixes:
      - source venv/bin/activate
      - cd experiments
    gpus:
      - name: "[0-1]"
        capacity: 2
      - name: "3"
        capacity: 1
  - name: localhost
    transport: local
    gpus:
      - name: cpu
        capacity: 4
`

func TestTopology(t *testing.T) {
	topo, err := ParseTopology([]byte(topologyYAML))
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, s := range topo.Servers {
		names = append(names, s.Name)
	}
	if want := []string{"kn1", "kn2", "localhost"}; !reflect.DeepEqual(names, want) {
		t.Errorf("got servers %v, expected %v", names, want)
	}

	kn2 := topo.Servers[1]

	wantGPUs := []GPU{
		{Name: "0", Capacity: 2},
		{Name: "1", Capacity: 2},
		{Name: "3", Capacity: 1},
	}
	if !reflect.DeepEqual(kn2.GPUs, wantGPUs) {
		t.Errorf("got gpus %v, expected %v", kn2.GPUs, wantGPUs)
	}

	if kn2.Timeout != 10*time.Second || kn2.User != "alice" || len(kn2.Prefixes) != 2 {
		t.Errorf("unexpected server: %+v", kn2)
	}

	if n := topo.NumGPUs(); n != 7 {
		t.Errorf("expected 7 gpus, got %v", n)
	}

	tgt, err := kn2.NewTarget()
	if err != nil {
		t.Fatal(err)
	}
	if want := "source venv/bin/activate && cd experiments && ls"; tgt.Command("ls") != want {
		t.Errorf("got %q, expected %q", tgt.Command("ls"), want)
	}

	tr, err := topo.Servers[2].NewTransport()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*target.Local); !ok {
		t.Errorf("expected a local transport, got %T", tr)
	}

	tr, err = kn2.NewTransport()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*target.SSH); !ok {
		t.Errorf("expected an ssh transport, got %T", tr)
	}
}

// Files written for the first version use prefixs and max_xp.
func TestTopologyLegacy(t *testing.T) {
	topo, err := ParseTopology([]byte(`{
		"servers": [
			{"name": "gpu01", "prefixs": ["module load cuda"], "gpus": [{"name": "0", "max_xp": 3}]}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	s := topo.Servers[0]
	if !reflect.DeepEqual(s.Prefixes, []string{"module load cuda"}) || s.Prefixs != nil {
		t.Errorf("prefixes not folded: %+v", s)
	}
	if g := s.GPUs[0]; g.Capacity != 3 || g.MaxXP != 0 {
		t.Errorf("capacity not folded: %+v", g)
	}
}

func TestTopologyInvalid(t *testing.T) {
	for _, s := range []string{
		`servers: []`,
		`servers: [{name: ""}]`,
		`servers: [{name: a}, {name: a}]`,
		`servers: [{name: "a[1-2]", address: 10.0.0.1}]`,
		`servers: [{name: "a[2-"}]`,
		`servers: [{name: a, transport: rsh}]`,
		`servers: [{name: a, port: 70000}]`,
		`servers: [{name: a, gpus: [{name: "0"}, {name: "[0-1]"}]}]`,
		`servers: [{name: a, gpus: [{name: "0", capacity: -1}]}]`,
		`servers: [{name: a, gpus: [{capacity: 1}]}]`,
	} {
		if _, err := ParseTopology([]byte(s)); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}
