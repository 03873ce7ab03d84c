// Copyright 2012-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package ranges expands compact host and device specifications such as
// "kn[1-3,100]" or "[0-3]" into the individual names they describe.
package ranges

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("invalid range specification")

// Expand splits a range specification into its names, sorted numerically and
// without duplicates. A string without brackets is returned as-is. Zero
// padded bounds, as in "gpu[00-11]", keep their width.
func Expand(s string) ([]string, error) {
	open := strings.Index(s, "[")
	if open == -1 {
		if strings.Contains(s, "]") {
			return nil, ErrInvalidRange
		}
		return []string{s}, nil
	}

	end := strings.Index(s, "]")
	if end < open {
		return nil, ErrInvalidRange
	}

	prefix, body, suffix := s[:open], s[open+1:end], s[end+1:]
	if strings.ContainsAny(suffix, "[]") || body == "" {
		return nil, ErrInvalidRange
	}

	dedup := make(map[int]bool)
	width := 0

	for _, part := range strings.Split(body, ",") {
		nums, w, err := subrange(part)
		if err != nil {
			return nil, fmt.Errorf("%v: %v", s, err)
		}
		if w > width {
			width = w
		}
		for _, n := range nums {
			dedup[n] = true
		}
	}

	var tmp []int
	for k := range dedup {
		tmp = append(tmp, k)
	}

	sort.Ints(tmp)

	var res []string
	for _, n := range tmp {
		res = append(res, prefix+pad(n, width)+suffix)
	}

	return res, nil
}

// ExpandAll expands every specification in specs, preserving their order.
func ExpandAll(specs []string) ([]string, error) {
	var res []string
	for _, s := range specs {
		names, err := Expand(s)
		if err != nil {
			return nil, err
		}
		res = append(res, names...)
	}
	return res, nil
}

// subrange parses "5" or "1-4" and returns the numbers along with the padded
// width, zero when the bounds are not zero padded.
func subrange(s string) ([]int, int, error) {
	s = strings.TrimSpace(s)

	limits := strings.Split(s, "-")
	if len(limits) > 2 {
		return nil, 0, ErrInvalidRange
	}

	start, err := strconv.Atoi(limits[0])
	if err != nil || start < 0 {
		return nil, 0, ErrInvalidRange
	}

	end := start
	if len(limits) == 2 {
		end, err = strconv.Atoi(limits[1])
		if err != nil {
			return nil, 0, ErrInvalidRange
		}
	}

	if end < start {
		return nil, 0, errors.New("invalid range: min > max")
	}

	width := 0
	if len(limits[0]) > 1 && limits[0][0] == '0' {
		width = len(limits[0])
	}

	var nums []int
	for i := start; i <= end; i++ {
		nums = append(nums, i)
	}

	return nums, width, nil
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
