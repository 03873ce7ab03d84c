// Copyright 2012-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// minigrid runs a command for every combination of parameters, spreading the
// commands over the GPUs of several servers. The number of commands each GPU
// runs at once can be changed from the console while the sweep is running.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sandia-minimega/minigrid/internal/config"
	"github.com/sandia-minimega/minigrid/internal/journal"
	"github.com/sandia-minimega/minigrid/internal/version"
	log "github.com/sandia-minimega/minigrid/pkg/minilog"

	"github.com/peterh/liner"
)

var (
	f_params  = flag.String("params", "params.json", "parameter file, JSON or YAML")
	f_servers = flag.String("servers", "servers.json", "servers and GPUs file, JSON or YAML")
	f_journal = flag.String("journal", "", "record every experiment to this sqlite database")
	f_ring    = flag.Int("ring", 1000, "number of log messages kept for log dump")
	f_check   = flag.Bool("check", false, "check the files, print the size of the sweep and exit")
	f_nostdin = flag.Bool("nostdin", false, "disable the console, exit once every experiment ran")
	f_version = flag.Bool("version", false, "print the version and copyright notices")
)

const banner = `minigrid, Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
rights in this software.`

func usage() {
	fmt.Println(banner)
	fmt.Println("usage: minigrid [option]...")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	log.Init()

	if *f_version {
		fmt.Println("minigrid", version.Revision, version.Date)
		fmt.Println(version.Copyright)
		os.Exit(0)
	}

	if *f_ring > 0 {
		logRing = log.NewRing(*f_ring)
		log.AddRing(ringName, logRing, log.INFO)
	}

	params, err := config.LoadParams(*f_params)
	if err != nil {
		log.Fatal("unable to load parameters: %v", err)
	}

	topo, err := config.LoadTopology(*f_servers)
	if err != nil {
		log.Fatal("unable to load servers: %v", err)
	}

	grid, err = NewGrid(params, topo)
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Printf("%v experiments, %v gpus and %v servers\n", grid.Feed().Len(), topo.NumGPUs(), len(topo.Servers))

	if *f_check {
		os.Exit(0)
	}

	if *f_journal != "" {
		desc := strings.Join([]string{abs(*f_params), abs(*f_servers)}, " ")

		j, err := journal.Open(*f_journal, desc)
		if err != nil {
			log.Fatalln(err)
		}
		grid.SetJournal(j)
	}

	n := grid.ConnectAll()
	log.Info("connected to %v of %v servers", n, len(topo.Servers))

	// first signal drains, second one gives up on the running experiments
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		log.Warnln("caught signal, waiting for running experiments to complete")
		grid.StopAll()

		<-sig
		log.Fatal("caught second signal, exiting")
	}()

	if *f_nostdin {
		if n == 0 {
			log.Fatal("no server connected")
		}

		grid.StopIdle()
	} else {
		fmt.Println(banner)

		go func() {
			grid.Wait()
			log.Infoln("all pools stopped, quit to exit")
		}()

		input := liner.NewLiner()
		cliLocal(input)
		input.Close()

		// quit or EOF
		grid.StopAll()
	}

	grid.Wait()

	summary()

	if err := grid.Close(); err != nil {
		log.Errorln(err)
	}
}

func summary() {
	f := grid.Feed()
	log.Info("ran %v of %v experiments", f.Consumed(), f.Len())

	if grid.journal == nil {
		return
	}

	total, failed, err := grid.journal.Summary()
	if err != nil {
		log.Error("journal summary: %v", err)
		return
	}

	fmt.Printf("run %v: %v experiments, %v failed\n", grid.journal.Run(), total, failed)
}

func abs(path string) string {
	if p, err := filepath.Abs(path); err == nil {
		return p
	}
	return path
}
