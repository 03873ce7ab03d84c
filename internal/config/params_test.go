// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sandia-minimega/minigrid/internal/paramfeed"
)

func all(s paramfeed.Space) []paramfeed.Set {
	var res []paramfeed.Set
	for i := 0; i < s.Len(); i++ {
		res = append(res, s.At(i))
	}
	return res
}

const paramsJSON = `{
	"format": "python train.py --lr {lr} --model {model} --gpu {gpu}",
	"parameters": [
		{"type": "listing", "parameters": [{"lr": 0.1, "model": "resnet"}]},
		{"type": "product", "parameters": {"model": ["vgg", "vit"], "lr": [1, 2]}}
	]
}`

func TestParamsJSON(t *testing.T) {
	p, err := ParseParams([]byte(paramsJSON))
	if err != nil {
		t.Fatal(err)
	}

	s, err := p.Space()
	if err != nil {
		t.Fatal(err)
	}

	// axes follow the declared order, the last one varies fastest
	want := []paramfeed.Set{
		{"lr": 0.1, "model": "resnet"},
		{"model": "vgg", "lr": 1},
		{"model": "vgg", "lr": 2},
		{"model": "vit", "lr": 1},
		{"model": "vit", "lr": 2},
	}

	if got := all(s); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, expected %v", got, want)
	}

	tmpl, err := p.Template()
	if err != nil {
		t.Fatal(err)
	}

	cmd, err := tmpl.Render(s.At(0), "3")
	if err != nil {
		t.Fatal(err)
	}
	if want := "python train.py --lr 0.1 --model resnet --gpu 3"; cmd != want {
		t.Errorf("got %q, expected %q", cmd, want)
	}
}

const paramsYAML = `
format: ./run.sh {seed} {dataset}
parameters:
  - type: product
    parameters:
      seed: [1, 2, 3]
      dataset: [mnist]
  - type: listing
    parameters:
      - {seed: 0, dataset: cifar}
`

func TestParamsYAML(t *testing.T) {
	p, err := ParseParams([]byte(paramsYAML))
	if err != nil {
		t.Fatal(err)
	}

	s, err := p.Space()
	if err != nil {
		t.Fatal(err)
	}

	want := []paramfeed.Set{
		{"seed": 1, "dataset": "mnist"},
		{"seed": 2, "dataset": "mnist"},
		{"seed": 3, "dataset": "mnist"},
		{"seed": 0, "dataset": "cifar"},
	}

	if got := all(s); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, expected %v", got, want)
	}
}

func TestParamsEmpty(t *testing.T) {
	p, err := ParseParams([]byte(`
format: echo {x}
parameters:
  - type: listing
  - type: product
    parameters:
      x: []
`))
	if err != nil {
		t.Fatal(err)
	}

	s, err := p.Space()
	if err != nil {
		t.Fatal(err)
	}

	if s.Len() != 0 {
		t.Errorf("expected an empty space, got %v", all(s))
	}
}

func TestParamsInvalid(t *testing.T) {
	for _, s := range []string{
		`parameters: []`,
		`format: echo {x`,
		"format: echo\nparameters: [{type: grid, parameters: []}]",
		"format: echo\nparameters: [{parameters: []}]",
		"format: echo\nparameters: [{type: listing, parameters: {x: 1}}]",
		"format: echo\nparameters: [{type: listing, parameters: [1, 2]}]",
		"format: echo\nparameters: [{type: product, parameters: [1, 2]}]",
		"format: echo\nparameters: [{type: product, parameters: {x: 1}}]",
		`{"format": "echo", "parameters": [`,
		"format: echo {gpu}\nparameters: [{type: listing, parameters: [{gpu: 1}]}]",
		"format: echo {gpu}\nparameters: [{type: product, parameters: {x: [1], gpu: [0, 1]}}]",
	} {
		if _, err := ParseParams([]byte(s)); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(paramsJSON), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadParams(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Parameters) != 2 {
		t.Errorf("expected 2 blocks, got %v", len(p.Parameters))
	}

	if _, err := LoadParams(path + ".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}
