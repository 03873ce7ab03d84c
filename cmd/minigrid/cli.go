// Copyright 2012-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sandia-minimega/minigrid/internal/gpupool"
	"github.com/sandia-minimega/minigrid/internal/version"
	"github.com/sandia-minimega/minigrid/pkg/minicli"
	log "github.com/sandia-minimega/minigrid/pkg/minilog"
	"github.com/sandia-minimega/minigrid/pkg/minipager"

	"github.com/peterh/liner"
)

// ringName is the logger backing the log dump command
const ringName = "ring"

var (
	grid    *Grid
	logRing *log.Ring

	quit     = make(chan struct{})
	quitOnce sync.Once
)

var cliHandlers = []minicli.Handler{
	{ // pools
		HelpShort: "list pools",
		HelpLong: `
List the pools, or only the matching ones. Pools are named target:device and
both parts may be ranges, as in kn[1-4]:[0-1]. Columns:

- state     : created, running, draining or stopped
- capacity  : target number of workers
- live      : workers currently alive
- pending   : workers that will exit after their current experiment
- completed : experiments that finished, including failed ones
- failed    : experiments with a non-zero exit status or a lost connection
- running   : IDs of the experiments in flight`,
		Patterns: []string{"pools [pool]..."},
		Call:     cliPools,
		Suggest:  suggestPools,
	},
	{ // resize
		HelpShort: "change the number of workers of pools",
		HelpLong: `
Change the number of workers of the matching pools, "all" matches every pool.
Growing starts the new workers right away. Shrinking never interrupts a
running experiment, surplus workers exit once their current one completes.`,
		Patterns: []string{"resize <pool> <capacity>"},
		Call:     cliResize,
		Suggest:  suggestPools,
	},
	{ // stop
		HelpShort: "stop pools",
		HelpLong: `
Stop the matching pools, "all" matches every pool. Running experiments are
left to complete. A stopped pool cannot be restarted.`,
		Patterns: []string{"stop <pool>..."},
		Call:     cliStop,
		Suggest:  suggestPools,
	},
	{ // targets
		HelpShort: "list targets and whether they are connected",
		Patterns:  []string{"targets"},
		Call:      cliTargets,
	},
	{ // connect
		HelpShort: "connect a target and start its pools",
		HelpLong: `
Connect a target that failed to connect at startup, or lost its connection,
and start its pools that have not started yet.`,
		Patterns: []string{"connect <target>"},
		Call:     cliConnect,
		Suggest:  suggestTargets,
	},
	{ // feed
		HelpShort: "report progress through the parameter sets",
		Patterns:  []string{"feed"},
		Call:      cliFeed,
	},
	{ // host
		HelpShort: "report information about this host",
		HelpLong: `
Report information about the host minigrid runs on:

- cpus     : number of cpus
- load     : system load average
- memtotal : total memory in MB
- memused  : memory used in MB
- name     : name of the machine
- uptime   : uptime`,
		Patterns: []string{
			"host",
			"host <cpus,load,memtotal,memused,name,uptime>",
		},
		Call: cliHost,
	},
	{ // history
		HelpShort: "list the latest experiments",
		HelpLong: `
List the latest experiments of this run, 10 by default. Requires -journal.`,
		Patterns: []string{"history [n]"},
		Call:     cliHistory,
	},
	{ // log
		HelpShort: "set the log level or dump recent log messages",
		HelpLong: `
Without a level, print the current log level. "log dump" prints the most recent
log messages, including the output of experiments.`,
		Patterns: []string{
			"log level [debug,info,warn,error,fatal]",
			"log dump [n]",
		},
		Call: cliLog,
	},
	{ // version
		HelpShort: "display the version",
		Patterns:  []string{"version"},
		Call: func(c *minicli.Command, resp *minicli.Response) error {
			resp.Response = fmt.Sprintf("minigrid %v %v\n%v", version.Revision, version.Date, version.Copyright)
			return nil
		},
	},
	{ // help
		HelpShort: "show command help",
		Patterns:  []string{"help [command]..."},
		Call: func(c *minicli.Command, resp *minicli.Response) error {
			resp.Response = minicli.Help(strings.Join(c.ListArgs["command"], " "))
			return nil
		},
	},
	{ // quit
		HelpShort: "stop every pool and exit once they drained",
		Patterns:  []string{"quit"},
		Call: func(c *minicli.Command, resp *minicli.Response) error {
			quitOnce.Do(func() { close(quit) })
			resp.Response = "waiting for running experiments to complete"
			return nil
		},
	},
}

func init() {
	for i := range cliHandlers {
		minicli.MustRegister(&cliHandlers[i])
	}
}

// poolsArgs returns the pools matching all the specs, without duplicates.
func poolsArgs(specs []string) ([]*gpupool.Pool, error) {
	seen := map[*gpupool.Pool]bool{}
	var res []*gpupool.Pool

	for _, spec := range specs {
		pools, err := grid.Pools(spec)
		if err != nil {
			return nil, err
		}

		for _, p := range pools {
			if !seen[p] {
				seen[p] = true
				res = append(res, p)
			}
		}
	}

	return res, nil
}

func cliPools(c *minicli.Command, resp *minicli.Response) error {
	specs := c.ListArgs["pool"]
	if len(specs) == 0 {
		specs = []string{Wildcard}
	}

	pools, err := poolsArgs(specs)
	if err != nil {
		return err
	}

	resp.Header = []string{"target", "device", "state", "capacity", "live", "pending", "completed", "failed", "running"}

	for _, p := range pools {
		s := p.Status()

		var running []string
		for _, id := range s.Running {
			running = append(running, strconv.Itoa(id))
		}

		resp.Tabular = append(resp.Tabular, []string{
			s.Target,
			s.Device,
			s.State.String(),
			strconv.Itoa(s.Capacity),
			strconv.Itoa(s.Live),
			strconv.Itoa(s.PendingKill),
			strconv.Itoa(s.Completed),
			strconv.Itoa(s.Failed),
			strings.Join(running, ","),
		})
	}

	return nil
}

func cliResize(c *minicli.Command, resp *minicli.Response) error {
	capacity, err := strconv.Atoi(c.StringArgs["capacity"])
	if err != nil {
		return fmt.Errorf("invalid capacity: %v", c.StringArgs["capacity"])
	}

	pools, err := grid.Pools(c.StringArgs["pool"])
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range pools {
		if err := p.Resize(capacity); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", p, err))
		}
	}

	return errors.Join(errs...)
}

func cliStop(c *minicli.Command, resp *minicli.Response) error {
	pools, err := poolsArgs(c.ListArgs["pool"])
	if err != nil {
		return err
	}

	for _, p := range pools {
		p.Stop()
	}

	return nil
}

func cliTargets(c *minicli.Command, resp *minicli.Response) error {
	resp.Header = []string{"target", "connected", "pools"}

	for _, t := range grid.targets {
		resp.Tabular = append(resp.Tabular, []string{
			t.Name,
			strconv.FormatBool(t.Connected()),
			strconv.Itoa(len(grid.byTarget[t.Name])),
		})
	}

	return nil
}

func cliConnect(c *minicli.Command, resp *minicli.Response) error {
	t := grid.Target(c.StringArgs["target"])
	if t == nil {
		return fmt.Errorf("no such target: %v", c.StringArgs["target"])
	}

	return grid.Connect(t)
}

func cliFeed(c *minicli.Command, resp *minicli.Response) error {
	f := grid.Feed()

	resp.Header = []string{"total", "consumed", "remaining", "exhausted"}
	resp.Tabular = [][]string{{
		strconv.Itoa(f.Len()),
		strconv.Itoa(f.Consumed()),
		strconv.Itoa(f.Len() - f.Consumed()),
		strconv.FormatBool(f.Exhausted()),
	}}

	return nil
}

func cliHost(c *minicli.Command, resp *minicli.Response) error {
	stats, err := NewHostStats()
	if err != nil {
		return err
	}

	// If they selected one of the fields to display
	for k := range c.BoolArgs {
		resp.Response = stats.Print(k)
		return nil
	}

	// Must want all fields
	resp.Header = hostInfoKeys

	row := []string{}
	for _, k := range resp.Header {
		row = append(row, stats.Print(k))
	}
	resp.Tabular = [][]string{row}

	return nil
}

func cliHistory(c *minicli.Command, resp *minicli.Response) error {
	if grid.journal == nil {
		return errors.New("no journal, run with -journal")
	}

	n := 10
	if v, ok := c.StringArgs["n"]; ok {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n <= 0 {
			return fmt.Errorf("invalid count: %v", v)
		}
	}

	entries, err := grid.journal.Recent(n)
	if err != nil {
		return err
	}

	resp.Header = []string{"id", "target", "device", "status", "duration", "command", "error"}

	for _, e := range entries {
		resp.Tabular = append(resp.Tabular, []string{
			strconv.Itoa(e.Experiment),
			e.Target,
			e.Device,
			strconv.Itoa(e.Status),
			e.Duration().Round(time.Millisecond).String(),
			e.Command,
			e.Error,
		})
	}

	return nil
}

func cliLog(c *minicli.Command, resp *minicli.Response) error {
	if strings.HasPrefix(c.Pattern, "log dump") {
		if logRing == nil {
			return errors.New("no log ring")
		}

		lines := logRing.Dump()

		if v, ok := c.StringArgs["n"]; ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid count: %v", v)
			}
			if n < len(lines) {
				lines = lines[len(lines)-n:]
			}
		}

		resp.Response = strings.Join(lines, "\n")
		return nil
	}

	// no level given, report the current one
	if len(c.BoolArgs) == 0 {
		resp.Response = log.LevelFlag.String()
		return nil
	}

	for k := range c.BoolArgs {
		level, err := log.ParseLevel(k)
		if err != nil {
			return err
		}

		log.LevelFlag = level
		for _, name := range log.Loggers() {
			if name != ringName {
				log.SetLevel(name, level)
			}
		}
	}

	return nil
}

func suggestPools(key, prefix string) []string {
	if grid == nil || key != "pool" {
		return nil
	}

	var res []string
	for _, name := range append([]string{Wildcard}, grid.PoolNames()...) {
		if strings.HasPrefix(name, prefix) {
			res = append(res, name)
		}
	}
	return res
}

func suggestTargets(key, prefix string) []string {
	if grid == nil {
		return nil
	}

	var res []string
	for _, t := range grid.targets {
		if strings.HasPrefix(t.Name, prefix) {
			res = append(res, t.Name)
		}
	}
	return res
}

// cliExec runs a single command line, returning its output.
func cliExec(line string) (string, error) {
	resp, err := minicli.ProcessString(line)
	if err != nil || resp == nil {
		return "", err
	}

	if resp.Error != "" {
		return resp.String(), errors.New(resp.Error)
	}

	return resp.String(), nil
}

func quitting() bool {
	select {
	case <-quit:
		return true
	default:
		return false
	}
}

// cliLocal reads commands from the console until quit or EOF.
func cliLocal(input *liner.State) {
	input.SetCtrlCAborts(true)
	input.SetTabCompletionStyle(liner.TabPrints)
	input.SetCompleter(minicli.Suggest)

	for !quitting() {
		line, err := input.Prompt("minigrid$ ")
		if err == liner.ErrPromptAborted {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			log.Error("console: %v", err)
			break
		}

		line = strings.TrimSpace(line)

		log.Debug("got line from stdin: `%v`", line)

		// skip blank lines
		if line == "" {
			continue
		}

		input.AppendHistory(line)

		out, err := cliExec(line)
		minipager.DefaultPager.Page(out)
		if err != nil {
			log.Errorln(err)
		}
	}
}
