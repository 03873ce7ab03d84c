// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package minicli

import (
	"bytes"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

// A response as populated by handler functions.
type Response struct {
	Response string     // Simple response
	Header   []string   // Optional header for tabular data
	Tabular  [][]string // Optional tabular data. If set, Response will be ignored
	Error    string
}

type table [][]string

func (t table) Len() int {
	return len(t)
}

func (t table) Swap(i, j int) {
	t[i], t[j] = t[j], t[i]
}

func (t table) Less(i, j int) bool {
	for k := 0; k < len(t[i]) && k < len(t[j]); k++ {
		if t[i][k] != t[j][k] {
			// If both convert to ints, compare using int comparison
			v, err := strconv.Atoi(t[i][k])
			v2, err2 := strconv.Atoi(t[j][k])
			if err == nil && err2 == nil {
				return v < v2
			}

			return t[i][k] < t[j][k]
		}
	}

	return false
}

// String renders the tabular data, sorted, if there is any and the simple
// response otherwise. Errors are not included, see Error.
func (r *Response) String() string {
	if len(r.Tabular) == 0 {
		return strings.TrimSpace(r.Response)
	}

	data := make(table, len(r.Tabular))
	copy(data, r.Tabular)
	sort.Stable(data)

	var buf bytes.Buffer

	w := new(tabwriter.Writer)
	w.Init(&buf, 5, 0, 1, ' ', 0)

	if len(r.Header) > 0 {
		printRow(w, r.Header)
	}
	for _, row := range data {
		printRow(w, row)
	}

	w.Flush()

	return strings.TrimSpace(buf.String())
}

func printRow(w io.Writer, row []string) {
	for i, v := range row {
		if i != 0 {
			io.WriteString(w, "\t| ")
		}
		io.WriteString(w, v)
	}
	io.WriteString(w, "\n")
}
