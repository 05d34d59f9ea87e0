// Package cvscache implements the on-disk log cache: directory,
// filename derivation, read/write/update modes, and overlap rejection.
// The on-disk byte format is an implementation choice, not a mandated
// wire format, so this package is free to pick one.
//
// Copyright by Eric S. Raymond
// SPDX-License-Identifier: BSD-2-Clause
package cvscache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	shutil "github.com/termie/go-shutil"

	"gitlab.com/esr/cvsps/cvslog"
	"gitlab.com/esr/cvsps/dateutil"
)

// Mode selects how Load/Store treat an existing cache file.
type Mode int

const (
	// ModeRead loads the existing cache and never writes it back; when
	// the cache holds entries no CVS invocation happens downstream, and
	// when it is missing or empty the log is collected from CVS afresh.
	ModeRead Mode = iota
	// ModeWrite ignores any existing cache and produces a fresh one.
	ModeWrite
	// ModeUpdate loads the existing cache, then appends entries newer
	// than its last recorded date.
	ModeUpdate
)

var alnumRun = regexp.MustCompile(`[A-Za-z0-9]+`)

// Dir returns the cache directory, creating it if absent: ~/.pycvsps.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".pycvsps")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// FileName derives the cache file name for (root, directory): split
// root on ":", append directory and "cache", keep only alphanumeric
// runs of each part, join the runs of each part with "-", then join
// the non-empty parts with ".".
func FileName(root, directory string) string {
	parts := strings.Split(root, ":")
	parts = append(parts, directory, "cache")

	var nonEmpty []string
	for _, p := range parts {
		runs := alnumRun.FindAllString(p, -1)
		joined := strings.Join(runs, "-")
		if joined != "" {
			nonEmpty = append(nonEmpty, joined)
		}
	}
	return strings.Join(nonEmpty, ".")
}

// Path is Dir joined with FileName(root, directory).
func Path(root, directory string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName(root, directory)), nil
}

// onDiskCache is the gob-serializable envelope: plain entries plus,
// since gob cannot reconstruct interned-string sharing on decode, the
// entries are decoded as ordinary distinct string allocations - the
// cache never needs to re-share storage with a live parser's intern
// table, only to round-trip values.
type onDiskCache struct {
	Entries []*cvslog.LogEntry
}

// Load reads a cache file if mode requests it. A missing file under
// ModeRead/ModeUpdate is not an error; it simply yields no prior
// entries.
func Load(path string, mode Mode) ([]*cvslog.LogEntry, error) {
	if mode == ModeWrite {
		return nil, nil
	}
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var disk onDiskCache
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&disk); err != nil {
		return nil, cvslog.NewLogError("corrupt cache %s: %v", path, err)
	}
	return disk.Entries, nil
}

// LastDate returns the most recent entry date in entries, used to
// compute the `-d>DATE` bound for an incremental "update" collection.
func LastDate(entries []*cvslog.LogEntry) (dateutil.Date, bool) {
	var last dateutil.Date
	found := false
	for _, e := range entries {
		if !found || last.Before(e.Date) {
			last = e.Date
			found = true
		}
	}
	return last, found
}

// Merge joins a prior cache's entries with a newly collected batch,
// sorting the new batch by date and rejecting the merge if the prior
// cache's latest entry is not strictly older than the new batch's
// earliest one - the date-boundary overlap test pycvsps's createlog
// applies (`oldlog[-1].date >= log[0].date`), not an identity check
// on individual (rcs, revision) pairs: a single rerun of the same
// window would otherwise pass as "no literal duplicate" while still
// being a genuine overlap.
func Merge(prior, fresh []*cvslog.LogEntry) ([]*cvslog.LogEntry, error) {
	sorted := make([]*cvslog.LogEntry, len(fresh))
	copy(sorted, fresh)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	if len(sorted) > 0 {
		if last, ok := LastDate(prior); ok && !last.Before(sorted[0].Date) {
			return nil, cvslog.NewLogError("log cache overlaps with new log entries, re-run without cache")
		}
	}

	out := make([]*cvslog.LogEntry, 0, len(prior)+len(sorted))
	out = append(out, prior...)
	out = append(out, sorted...)
	return out, nil
}

// Store writes entries to path: encode to a sibling temp file, then
// copy it over the destination with shutil.Copy and remove the temp
// file. A failure while encoding or writing the temp file leaves any
// existing cache untouched; the copy itself overwrites the destination
// in place and is not atomic, so an interruption during the copy can
// leave a partial cache.
func Store(path string, entries []*cvslog.LogEntry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(onDiskCache{Entries: entries}); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := ioutil.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := shutil.Copy(tmp, path, false); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing cache %s: %w", path, err)
	}
	return os.Remove(tmp)
}
