// cvsps reconstructs a changeset history from CVS per-file revision
// logs, mirroring cvsps-2.1's command-line surface.
//
// Copyright by Eric S. Raymond
// SPDX-License-Identifier: BSD-2-Clause
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"gitlab.com/esr/cvsps/changeset"
	"gitlab.com/esr/cvsps/cvscache"
	"gitlab.com/esr/cvsps/cvsinvoke"
	"gitlab.com/esr/cvsps/cvslog"
	"gitlab.com/esr/cvsps/dateutil"
)

// stringList accumulates repeated string flags (-b, -r), the idiomatic
// flag.Value shape for an "action: append" option with no stdlib
// built-in equivalent.
type stringList []string

func (l *stringList) String() string { return fmt.Sprint([]string(*l)) }
func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// countFlag implements a repeatable boolean flag (-v -v -v), matching
// optparse's action='count'.
type countFlag int

func (c *countFlag) String() string { return fmt.Sprint(int(*c)) }
func (c *countFlag) Set(string) error {
	*c++
	return nil
}
func (c *countFlag) IsBoolFlag() bool { return true }

func main() {
	var (
		branches      stringList
		prefix        string
		revisions     stringList
		updateCache   bool
		newCache      bool
		verbose       countFlag
		fuzz          int
		root          string
		showParents   bool
		showAncestors bool
		ignored       bool
	)

	flag.Var(&branches, "b", "only return changes on specified branches")
	flag.StringVar(&prefix, "p", "", "prefix to remove from file names")
	flag.Var(&revisions, "r", "only return changes from or between specified tags, inclusive")
	flag.BoolVar(&updateCache, "u", false, "update cvs log cache")
	flag.BoolVar(&newCache, "x", false, "create new cvs log cache")
	flag.Var(&verbose, "v", "be verbose (repeatable)")
	flag.IntVar(&fuzz, "z", changeset.DefaultFuzz, "set commit time fuzz, in seconds")
	flag.StringVar(&root, "root", "", "specify cvsroot")
	flag.BoolVar(&showParents, "parents", false, "show parent changesets")
	flag.BoolVar(&showAncestors, "ancestors", false, "show current changeset in ancestor branches")

	// Accepted and ignored for cvsps-2.1 compatibility.
	flag.BoolVar(&ignored, "A", false, "")
	flag.BoolVar(&ignored, "cvs-direct", false, "")
	flag.BoolVar(&ignored, "q", false, "")
	flag.BoolVar(&ignored, "norc", false, "")

	flag.Parse()

	ui := cvsinvoke.NewUI(int(verbose), os.Stderr)

	dirs := flag.Args()
	if len(dirs) == 0 {
		dirs = []string{""}
	}

	mode := cvscache.ModeRead
	switch {
	case newCache:
		mode = cvscache.ModeWrite
	case updateCache:
		mode = cvscache.ModeUpdate
	}

	var log []*cvslog.LogEntry
	for _, dir := range dirs {
		entries, err := collectLog(dir, root, mode, ui)
		if err != nil {
			reportAndExit(err)
		}
		log = append(log, entries...)
	}

	changesets := changeset.Synthesize(log, changeset.Options{
		Fuzz:      fuzz,
		OnWarning: func(msg string) { ui.Warn("%s", msg) },
	})

	var branchFilter map[string]bool
	if len(branches) > 0 {
		branchFilter = make(map[string]bool, len(branches))
		for _, b := range branches {
			branchFilter[b] = true
		}
	}

	cvsinvoke.Format(os.Stdout, changesets, cvsinvoke.FormatOptions{
		Prefix:    prefix,
		Branches:  branchFilter,
		Parents:   showParents,
		Ancestors: showAncestors,
		StartEnd:  revisions,
	})
}

// collectLog runs the full InvocationGlue -> LogParser -> cache-merge
// pipeline for one directory.
func collectLog(dir, root string, mode cvscache.Mode, ui *cvsinvoke.UI) ([]*cvslog.LogEntry, error) {
	sandbox, err := cvsinvoke.DetectSandbox(dir, root)
	if err != nil {
		return nil, err
	}

	cachePath, err := cvscache.Path(sandbox.Root, sandbox.Directory)
	if err != nil {
		return nil, err
	}
	prior, err := cvscache.Load(cachePath, mode)
	if err != nil {
		return nil, err
	}

	var since *dateutil.Date
	if mode == cvscache.ModeUpdate {
		if last, ok := cvscache.LastDate(prior); ok {
			since = &last
		}
	}
	if mode == cvscache.ModeRead && len(prior) > 0 {
		return prior, nil
	}

	session := cvsinvoke.Session{Sandbox: sandbox, RLog: true, UI: ui}
	stdout, cleanup, err := session.Run(context.Background(), since)
	if err != nil {
		return nil, err
	}

	ui.Status("collecting cvs rlog\n")
	fresh, err := cvslog.ParseLog(stdout, cvslog.Options{
		Prefix:   sandbox.Prefix(),
		RLog:     true,
		PriorLog: prior,
		OnProgress: func(count int, file string) {
			ui.Debug("%d %s\n", count, file)
		},
	})
	if waitErr := cleanup(); waitErr != nil && err == nil {
		err = waitErr
	}
	if err != nil {
		return nil, err
	}
	ui.Status("%d log entries\n", len(fresh))

	merged, err := cvscache.Merge(prior, fresh)
	if err != nil {
		return nil, err
	}
	if mode != cvscache.ModeRead {
		if err := cvscache.Store(cachePath, merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// reportAndExit is the one recovery boundary: LogError and AbortError
// are both fatal to the invocation and surfaced verbatim.
func reportAndExit(err error) {
	var logErr *cvslog.LogError
	var abortErr *dateutil.AbortError
	if !errors.As(err, &logErr) && !errors.As(err, &abortErr) {
		panic(err) // anything else indicates a bug, not a recoverable condition
	}
	fmt.Fprintf(os.Stderr, "cvsps: %v\n", err)
	os.Exit(1)
}
