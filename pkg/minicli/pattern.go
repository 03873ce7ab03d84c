// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package minicli

import (
	"errors"
	"fmt"
	"strings"
)

type itemType int

const (
	optionalItem itemType = 1 << iota
	literalItem
	stringItem
	choiceItem
	listItem
)

// characters that cannot appear in literals or argument names
const reserved = `<>[]()"'`

type PatternItem struct {
	Type itemType
	// Key is the first word, so "<foo bar>" -> "foo"
	Key string
	// The original text of the item, without brackets
	Text string
	// Options of a multiple choice
	Options []string
}

type PatternItems []PatternItem

func (p PatternItem) IsOptional() bool { return p.Type&optionalItem != 0 }
func (p PatternItem) IsLiteral() bool  { return p.Type&literalItem != 0 }
func (p PatternItem) IsString() bool   { return p.Type&stringItem != 0 }
func (p PatternItem) IsChoice() bool   { return p.Type&choiceItem != 0 }
func (p PatternItem) IsList() bool     { return p.Type&listItem != 0 }

func (p PatternItem) String() string {
	if p.IsLiteral() {
		return p.Text
	}

	s := "<" + p.Text + ">"
	if p.IsOptional() {
		s = "[" + p.Text + "]"
	}
	if p.IsList() {
		s += "..."
	}
	return s
}

func (items PatternItems) String() string {
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = v.String()
	}

	return strings.Join(parts, " ")
}

func lexPattern(pattern string) (PatternItems, error) {
	var items PatternItems

	rest := strings.TrimSpace(pattern)

	for rest != "" {
		var item PatternItem
		var err error

		switch rest[0] {
		case '<', '[':
			item, rest, err = lexArg(rest)
			if err != nil {
				return nil, err
			}
		default:
			i := strings.IndexAny(rest, " \t")
			if i == -1 {
				i = len(rest)
			}

			item = PatternItem{Type: literalItem, Text: rest[:i]}
			rest = rest[i:]

			if strings.ContainsAny(item.Text, reserved) {
				return nil, fmt.Errorf("unexpected character in `%v`", item.Text)
			}
		}

		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			return nil, fmt.Errorf("unexpected `%v` after %v", rest, item)
		}
		rest = strings.TrimLeft(rest, " \t")

		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, errors.New("empty pattern")
	}

	for i, item := range items {
		if (item.IsOptional() || item.IsList()) && i != len(items)-1 {
			return nil, fmt.Errorf("%v must be at the end of the pattern", item)
		}
	}

	return items, nil
}

// lexArg lexes a bracketed item at the start of s and returns it with the
// remainder of s.
func lexArg(s string) (PatternItem, string, error) {
	var item PatternItem

	terminal := byte('>')
	if s[0] == '[' {
		terminal = ']'
		item.Type = optionalItem
	}

	end := strings.IndexByte(s, terminal)
	if end == -1 {
		return item, "", fmt.Errorf("missing terminal %c", terminal)
	}

	item.Text, s = s[1:end], s[end+1:]

	if strings.TrimSpace(item.Text) == "" || strings.ContainsAny(item.Text, reserved) {
		return item, "", fmt.Errorf("invalid argument `%v`", item.Text)
	}

	if strings.HasPrefix(s, "...") {
		item.Type |= listItem
		s = s[3:]
	}

	if !strings.Contains(item.Text, ",") {
		if !item.IsList() {
			item.Type |= stringItem
		}
		item.Key = strings.Fields(item.Text)[0]

		return item, s, nil
	}

	if item.IsList() {
		return item, "", errors.New("multiple choice cannot be a list")
	}

	item.Type |= choiceItem
	item.Options = strings.Split(item.Text, ",")

	for _, o := range item.Options {
		if o == "" || strings.ContainsAny(o, " \t") {
			return item, "", fmt.Errorf("invalid choice `%v`", o)
		}
	}

	return item, s, nil
}
