// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package experiment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sandia-minimega/minigrid/internal/paramfeed"
)

// DeviceKey is the placeholder replaced by the device identifier.
const DeviceKey = "gpu"

// Template is a command with {name} placeholders. {{ and }} are literal
// braces.
type Template struct {
	Original string

	// literal text and placeholder names, alternating: parts[0] is text,
	// parts[1] a key, parts[2] text, ...
	parts []string
}

// Compile parses a command template.
func Compile(s string) (*Template, error) {
	t := &Template{Original: s}

	var text strings.Builder

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				text.WriteByte('{')
				i++
				continue
			}

			end := strings.IndexAny(s[i+1:], "{}")
			if end == -1 || s[i+1+end] != '}' {
				return nil, fmt.Errorf("unclosed placeholder at offset %v in %q", i, s)
			}

			key := strings.TrimSpace(s[i+1 : i+1+end])
			if key == "" {
				return nil, fmt.Errorf("empty placeholder at offset %v in %q", i, s)
			} else if strings.ContainsAny(key, ":!") {
				return nil, fmt.Errorf("format specs are not supported: {%v}", key)
			}

			t.parts = append(t.parts, text.String(), key)
			text.Reset()

			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				text.WriteByte('}')
				i++
				continue
			}

			return nil, fmt.Errorf("single '}' at offset %v in %q", i, s)
		default:
			text.WriteByte(c)
		}
	}

	t.parts = append(t.parts, text.String())

	return t, nil
}

// Keys returns the placeholder names used by the template, in order of
// appearance, without duplicates.
func (t *Template) Keys() []string {
	var res []string
	seen := map[string]bool{}

	for i := 1; i < len(t.parts); i += 2 {
		if k := t.parts[i]; !seen[k] {
			seen[k] = true
			res = append(res, k)
		}
	}

	return res
}

var (
	errMissingKey  = errors.New("no value for placeholder")
	ErrReservedKey = errors.New("parameter name is reserved for the device: " + DeviceKey)
)

// Render substitutes the parameters and device into the template.
func (t *Template) Render(params paramfeed.Set, device string) (string, error) {
	if _, ok := params[DeviceKey]; ok {
		return "", ErrReservedKey
	}

	var b strings.Builder

	for i, p := range t.parts {
		if i%2 == 0 {
			b.WriteString(p)
			continue
		}

		if p == DeviceKey {
			b.WriteString(device)
			continue
		}

		v, ok := params[p]
		if !ok {
			return "", fmt.Errorf("%w {%v}", errMissingKey, p)
		}
		b.WriteString(fmt.Sprint(v))
	}

	return b.String(), nil
}

func (t *Template) String() string {
	return t.Original
}
