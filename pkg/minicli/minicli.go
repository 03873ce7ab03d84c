// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package minicli is a small command line interface backend. Handlers are
// registered with patterns and the first handler with a pattern that matches
// an input line is called with the arguments extracted from it.
//
// Pattern syntax:
//
//	foo        literal text
//	<foo>      a required string, stored in StringArgs["foo"]
//	<foo bar>  same as <foo>, the extra words are documentation
//	[foo]      an optional string, must be last
//	<foo,bar>  a required choice, the choice is set in BoolArgs
//	[foo,bar]  an optional choice, must be last
//	<foo>...   one or more strings, stored in ListArgs["foo"], must be last
//	[foo]...   zero or more strings, must be last
package minicli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CLIFunc handles a compiled command, filling in the response.
type CLIFunc func(*Command, *Response) error

// SuggestFunc returns completions for the string argument key given the
// partial value typed so far.
type SuggestFunc func(key, prefix string) []string

type Handler struct {
	HelpShort string // a brief (one line) help message
	HelpLong  string // a descriptive help message
	Patterns  []string

	Call CLIFunc

	// Suggest is optional
	Suggest SuggestFunc

	patternItems []PatternItems
}

type Command struct {
	Original string // original raw input
	Pattern  string // the pattern we matched

	StringArgs map[string]string
	BoolArgs   map[string]bool
	ListArgs   map[string][]string

	Call CLIFunc
}

var handlers []*Handler

// Reset removes all registered handlers.
func Reset() {
	handlers = nil
}

// Register a handler. Handlers are tried in the order they are registered.
func Register(h *Handler) error {
	if len(h.Patterns) == 0 {
		return errors.New("handler without patterns")
	}

	h.patternItems = nil

	for _, p := range h.Patterns {
		items, err := lexPattern(p)
		if err != nil {
			return fmt.Errorf("invalid pattern `%v`: %v", p, err)
		}

		h.patternItems = append(h.patternItems, items)
	}

	handlers = append(handlers, h)
	return nil
}

// MustRegister calls Register and panics if it fails.
func MustRegister(h *Handler) {
	if err := Register(h); err != nil {
		panic(err)
	}
}

// Compile an input line into a command. Returns a nil command for blank and
// comment lines.
func Compile(input string) (*Command, error) {
	items, err := lexInput(input)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, nil
	}

	for _, h := range handlers {
		for _, pattern := range h.patternItems {
			if cmd := newCommand(pattern, items); cmd != nil {
				cmd.Original = input
				cmd.Call = h.Call
				return cmd, nil
			}
		}
	}

	return nil, fmt.Errorf("invalid command: `%v`", strings.TrimSpace(input))
}

func newCommand(pattern PatternItems, input []string) *Command {
	cmd := &Command{
		Pattern:    pattern.String(),
		StringArgs: make(map[string]string),
		BoolArgs:   make(map[string]bool),
		ListArgs:   make(map[string][]string),
	}

outer:
	for i, item := range pattern {
		// ran out of input before the end of the pattern
		if len(input) <= i {
			if item.IsOptional() {
				return cmd
			}
			return nil
		}

		switch {
		case item.IsLiteral():
			if input[i] != item.Text {
				return nil
			}
		case item.IsList():
			cmd.ListArgs[item.Key] = append([]string(nil), input[i:]...)
			return cmd
		case item.IsChoice():
			for _, choice := range item.Options {
				if choice == input[i] {
					cmd.BoolArgs[choice] = true
					continue outer
				}
			}
			return nil
		case item.IsString():
			cmd.StringArgs[item.Key] = input[i]
		}
	}

	// extra input means we only matched a prefix
	if len(pattern) != len(input) {
		return nil
	}

	return cmd
}

// Process runs a compiled command.
func Process(cmd *Command) *Response {
	resp := &Response{}

	if cmd.Call == nil {
		resp.Error = "command has no handler"
		return resp
	}

	if err := cmd.Call(cmd, resp); err != nil {
		resp.Error = err.Error()
	}

	return resp
}

// ProcessString compiles and runs input. Returns a nil response for blank and
// comment lines.
func ProcessString(input string) (*Response, error) {
	cmd, err := Compile(input)
	if err != nil || cmd == nil {
		return nil, err
	}

	return Process(cmd), nil
}

// Help returns the short help of every handler when input is empty, the long
// help of the handlers whose patterns start with input otherwise.
func Help(input string) string {
	input = strings.TrimSpace(input)

	if input == "" {
		var patterns []string
		short := map[string]string{}

		for _, h := range handlers {
			for _, p := range h.patternItems {
				s := p.String()
				patterns = append(patterns, s)
				short[s] = h.HelpShort
			}
		}
		sort.Strings(patterns)

		resp := &Response{Header: []string{"command", "description"}}
		for _, p := range patterns {
			resp.Tabular = append(resp.Tabular, []string{p, short[p]})
		}

		return resp.String()
	}

	var res []string

	for _, h := range handlers {
		var usage []string
		for _, p := range h.patternItems {
			if s := p.String(); strings.HasPrefix(s, input) {
				usage = append(usage, "\t"+s)
			}
		}

		if len(usage) == 0 {
			continue
		}

		help := h.HelpLong
		if help == "" {
			help = h.HelpShort
		}

		res = append(res, "Usage:\n"+strings.Join(usage, "\n")+"\n\n"+strings.TrimSpace(help))
	}

	if len(res) == 0 {
		return fmt.Sprintf("no help for `%v`", input)
	}

	return strings.Join(res, "\n\n")
}

// Suggest returns completed versions of a partial input line.
func Suggest(line string) []string {
	items, err := lexInput(line)
	if err != nil {
		return nil
	}

	// the word being completed, empty if the line ends with a space
	var partial string
	if len(items) > 0 && !strings.HasSuffix(line, " ") {
		partial = items[len(items)-1]
		items = items[:len(items)-1]
	}

	base := strings.TrimSuffix(line, partial)

	seen := map[string]bool{}
	var res []string

	for _, h := range handlers {
		for _, pattern := range h.patternItems {
			for _, s := range h.suggest(pattern, items, partial) {
				if !seen[s] {
					seen[s] = true
					res = append(res, base+s)
				}
			}
		}
	}

	sort.Strings(res)
	return res
}

// suggest completes the pattern item following input, if input matches the
// start of pattern.
func (h *Handler) suggest(pattern PatternItems, input []string, partial string) []string {
	for i, v := range input {
		if i >= len(pattern) {
			return nil
		}

		item := pattern[i]
		switch {
		case item.IsList():
			// lists swallow the rest of the input
			return h.suggestItem(item, partial)
		case item.IsLiteral() && item.Text != v:
			return nil
		case item.IsChoice() && !contains(item.Options, v):
			return nil
		}
	}

	if len(input) >= len(pattern) {
		return nil
	}

	return h.suggestItem(pattern[len(input)], partial)
}

func (h *Handler) suggestItem(item PatternItem, partial string) []string {
	var candidates []string

	switch {
	case item.IsLiteral():
		candidates = []string{item.Text}
	case item.IsChoice():
		candidates = item.Options
	case h.Suggest != nil:
		return h.Suggest(item.Key, partial)
	}

	var res []string
	for _, c := range candidates {
		if strings.HasPrefix(c, partial) {
			res = append(res, c)
		}
	}
	return res
}

func contains(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}
