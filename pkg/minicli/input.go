// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package minicli

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// CommentLeader starts a comment that runs to the end of the line
const CommentLeader = '#'

var escapedChars = map[rune]rune{
	'r':           '\r',
	'n':           '\n',
	't':           '\t',
	'\\':          '\\',
	'"':           '"',
	'\'':          '\'',
	CommentLeader: CommentLeader,
}

// lexInput splits an input line into words. Words may be quoted with " or '
// and characters escaped with \.
func lexInput(input string) ([]string, error) {
	var items []string
	var content strings.Builder

	var quote rune
	var escape bool

	// force emit, even if content is empty (e.g. "" as input)
	var emit bool

	flush := func() {
		if content.Len() > 0 || emit {
			items = append(items, content.String())
			content.Reset()
			emit = false
		}
	}

outer:
	for _, r := range input {
		switch {
		case escape:
			v, ok := escapedChars[r]
			if !ok {
				return nil, fmt.Errorf("unexpected escaped character: %c", r)
			}
			content.WriteRune(v)
			escape = false
		case r == '\\':
			escape = true
		case quote != 0:
			if r == quote {
				quote = 0
				emit = true
			} else {
				content.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
		case r == CommentLeader:
			break outer
		case unicode.IsSpace(r):
			flush()
		default:
			content.WriteRune(r)
		}
	}

	if escape {
		return nil, errors.New("expected escape character")
	}
	if quote != 0 {
		return nil, fmt.Errorf("missing terminal %c", quote)
	}

	flush()

	return items, nil
}
