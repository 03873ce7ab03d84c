// Copyright 2023-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package journal records every experiment that ran, successful or not, in a
// SQLite database. Each invocation of minigrid is a separate run so that one
// database can hold the history of several sweeps.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandia-minimega/minigrid/internal/target"
	log "github.com/sandia-minimega/minigrid/pkg/minilog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started INTEGER NOT NULL,
	description TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS experiments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run INTEGER NOT NULL REFERENCES runs(id),
	experiment INTEGER NOT NULL,
	target TEXT NOT NULL,
	device TEXT NOT NULL,
	command TEXT NOT NULL,
	params TEXT NOT NULL,
	started INTEGER NOT NULL,
	ended INTEGER NOT NULL,
	status INTEGER NOT NULL,
	error TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_experiments_run ON experiments(run);
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

// Entry is one recorded experiment.
type Entry struct {
	Experiment int
	Target     string
	Device     string
	Command    string
	// Params is the parameter set, JSON encoded
	Params string
	Start  time.Time
	End    time.Time
	Status int
	Error  string
}

func (e Entry) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

type Journal struct {
	db  *sql.DB
	run int64
}

// Open opens or creates the database at path and starts a new run in it.
func Open(path, description string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// a single connection keeps the pragmas in effect for every statement
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal %v: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	res, err := db.Exec("INSERT INTO runs (started, description) VALUES (?, ?)", time.Now().UnixNano(), description)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal new run: %w", err)
	}

	j := &Journal{db: db}

	j.run, err = res.LastInsertId()
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Info("journaling run %v to %v", j.run, path)

	return j, nil
}

// Run returns the ID of the current run.
func (j *Journal) Run() int64 {
	return j.run
}

// Record implements target.Recorder.
func (j *Journal) Record(r target.Result) error {
	params, err := json.Marshal(r.Experiment.Params)
	if err != nil {
		return err
	}

	var errStr string
	if r.Err != nil {
		errStr = r.Err.Error()
	}

	_, err = j.db.Exec(`INSERT INTO experiments
		(run, experiment, target, device, command, params, started, ended, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.run, r.Experiment.ID, r.Target, r.Experiment.Device, r.Command, string(params),
		r.Start.UnixNano(), r.End.UnixNano(), r.Status, errStr)

	return err
}

// Recent returns up to n of the latest experiments of the current run, oldest
// first.
func (j *Journal) Recent(n int) ([]Entry, error) {
	rows, err := j.db.Query(`SELECT experiment, target, device, command, params, started, ended, status, error
		FROM (SELECT * FROM experiments WHERE run = ? ORDER BY id DESC LIMIT ?)
		ORDER BY id`, j.run, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Entry

	for rows.Next() {
		var e Entry
		var start, end int64

		if err := rows.Scan(&e.Experiment, &e.Target, &e.Device, &e.Command, &e.Params, &start, &end, &e.Status, &e.Error); err != nil {
			return nil, err
		}

		e.Start = time.Unix(0, start)
		e.End = time.Unix(0, end)

		res = append(res, e)
	}

	return res, rows.Err()
}

// Summary counts the experiments of the current run and how many of them
// failed.
func (j *Journal) Summary() (total, failed int, err error) {
	err = j.db.QueryRow(`SELECT COUNT(*), COUNT(CASE WHEN status != 0 THEN 1 END)
		FROM experiments WHERE run = ?`, j.run).Scan(&total, &failed)
	return
}

func (j *Journal) Close() error {
	return j.db.Close()
}
