// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package config reads the parameter and topology files. Both are YAML, JSON
// documents are accepted as-is.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sandia-minimega/minigrid/internal/experiment"
	"github.com/sandia-minimega/minigrid/internal/paramfeed"

	"gopkg.in/yaml.v3"
)

const (
	Listing = "listing"
	Product = "product"
)

// Params describes the experiments to run: a command template and the
// parameter sets to render it with.
type Params struct {
	Format     string  `yaml:"format"`
	Parameters []Block `yaml:"parameters"`
}

// Block is one entry of the parameters list. For a listing, Parameters is a
// list of sets. For a product, it maps each parameter name to its values and
// the mapping order is the axis order.
type Block struct {
	Type       string    `yaml:"type"`
	Parameters yaml.Node `yaml:"parameters"`
}

// LoadParams reads and validates a parameter file.
func LoadParams(path string) (*Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p, err := ParseParams(b)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}

	return p, nil
}

func ParseParams(b []byte) (*Params, error) {
	var p Params
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (p *Params) Validate() error {
	if p.Format == "" {
		return errors.New("missing format")
	}

	if _, err := experiment.Compile(p.Format); err != nil {
		return err
	}

	for i, b := range p.Parameters {
		if _, err := b.Space(); err != nil {
			return fmt.Errorf("parameters %v: %w", i, err)
		}
	}

	return nil
}

// Template compiles the command format.
func (p *Params) Template() (*experiment.Template, error) {
	return experiment.Compile(p.Format)
}

// Space chains the blocks in the order they are declared.
func (p *Params) Space() (paramfeed.Space, error) {
	var spaces []paramfeed.Space

	for i, b := range p.Parameters {
		s, err := b.Space()
		if err != nil {
			return nil, fmt.Errorf("parameters %v: %w", i, err)
		}

		spaces = append(spaces, s)
	}

	return paramfeed.Chain(spaces...)
}

func (b *Block) Space() (paramfeed.Space, error) {
	switch b.Type {
	case Listing:
		return b.listing()
	case Product:
		return b.product()
	case "":
		return nil, errors.New("missing type")
	}

	return nil, fmt.Errorf("unknown type: %v", b.Type)
}

func (b *Block) listing() (paramfeed.Space, error) {
	// omitted and null both mean no sets
	if b.Parameters.Kind == 0 || b.Parameters.Tag == "!!null" {
		return paramfeed.Listing(), nil
	}

	if b.Parameters.Kind != yaml.SequenceNode {
		return nil, errors.New("listing parameters must be a list of sets")
	}

	var sets []paramfeed.Set
	for _, n := range b.Parameters.Content {
		var s map[string]interface{}
		if err := n.Decode(&s); err != nil {
			return nil, fmt.Errorf("line %v: %w", n.Line, err)
		}
		if s == nil {
			s = map[string]interface{}{}
		}

		if _, ok := s[experiment.DeviceKey]; ok {
			return nil, fmt.Errorf("line %v: %w", n.Line, experiment.ErrReservedKey)
		}

		sets = append(sets, paramfeed.Set(s))
	}

	return paramfeed.Listing(sets...), nil
}

func (b *Block) product() (paramfeed.Space, error) {
	if b.Parameters.Kind == 0 || b.Parameters.Tag == "!!null" {
		return paramfeed.Product()
	}

	if b.Parameters.Kind != yaml.MappingNode {
		return nil, errors.New("product parameters must map names to values")
	}

	var axes []paramfeed.Axis

	// mapping content alternates keys and values, in document order
	content := b.Parameters.Content
	for i := 0; i+1 < len(content); i += 2 {
		k, v := content[i], content[i+1]

		if k.Value == experiment.DeviceKey {
			return nil, fmt.Errorf("line %v: %w", k.Line, experiment.ErrReservedKey)
		}

		a := paramfeed.Axis{Name: k.Value}
		if err := v.Decode(&a.Values); err != nil {
			return nil, fmt.Errorf("%v: values must be a list: %w", k.Value, err)
		}

		axes = append(axes, a)
	}

	return paramfeed.Product(axes...)
}
