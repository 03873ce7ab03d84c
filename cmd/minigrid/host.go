// Copyright 2012-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	proc "github.com/c9s/goprocinfo/linux"
)

// HostStats describes the machine minigrid runs on. Remote hosts are not
// polled, experiments own them.
type HostStats struct {
	Name     string
	CPUs     int
	Load     string
	MemTotal int // MB
	MemUsed  int // MB
	Uptime   time.Duration
}

// Preferred ordering of host info fields in tabular.
var hostInfoKeys = []string{
	"name", "cpus", "load", "memused", "memtotal", "uptime",
}

func NewHostStats() (*HostStats, error) {
	h := &HostStats{
		CPUs: runtime.NumCPU(),
	}

	var err error
	if h.Name, err = os.Hostname(); err != nil {
		return nil, err
	}

	load, err := proc.ReadLoadAvg("/proc/loadavg")
	if err != nil {
		return nil, err
	}
	h.Load = fmt.Sprintf("%.2f %.2f %.2f", load.Last1Min, load.Last5Min, load.Last15Min)

	mem, err := proc.ReadMemInfo("/proc/meminfo")
	if err != nil {
		return nil, err
	}
	h.MemTotal = int(mem.MemTotal / 1024)
	h.MemUsed = int((mem.MemTotal - mem.MemFree - mem.Buffers - mem.Cached) / 1024)

	uptime, err := proc.ReadUptime("/proc/uptime")
	if err != nil {
		return nil, err
	}
	h.Uptime = uptime.GetTotalDuration().Truncate(time.Second)

	return h, nil
}

func (h *HostStats) Print(v string) string {
	switch v {
	case "name":
		return h.Name
	case "cpus":
		return strconv.Itoa(h.CPUs)
	case "load":
		return h.Load
	case "memtotal":
		return strconv.Itoa(h.MemTotal)
	case "memused":
		return strconv.Itoa(h.MemUsed)
	case "uptime":
		return h.Uptime.String()
	}

	return "???"
}
