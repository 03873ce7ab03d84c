// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package minipager prints console output, sending it through $PAGER when it
// would not fit on the terminal.
package minipager

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	log "github.com/sandia-minimega/minigrid/pkg/minilog"

	"github.com/kr/pty"
)

type Pager interface {
	Page(output string)
}

var DefaultPager Pager = &TermPager{
	Out:  os.Stdout,
	Rows: termRows,
}

// TermPager pages output that is more than twice the height of the terminal.
type TermPager struct {
	Out io.Writer

	// Rows returns the terminal height, 0 if unknown
	Rows func() int
}

func (p *TermPager) Page(output string) {
	if output == "" {
		return
	}

	lines := strings.Count(output, "\n")

	rows := p.Rows()
	if rows == 0 || lines < 2*rows {
		fmt.Fprintln(p.Out, output)
		return
	}

	fmt.Fprintf(p.Out, "-- sending %v lines to $PAGER --\n", lines)

	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}

	cmd := exec.Command(pager)
	cmd.Stdin = strings.NewReader(output)
	cmd.Stdout = p.Out

	if err := cmd.Run(); err != nil {
		log.Error("problem paging: %s", err)
		fmt.Fprintln(p.Out, output)
	}
}

func termRows() int {
	rows, _, err := pty.Getsize(os.Stdout)
	if err != nil {
		log.Debug("unable to determine terminal size: %v", err)
		return 0
	}

	return rows
}
