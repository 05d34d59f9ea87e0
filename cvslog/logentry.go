package cvslog

import (
	"fmt"

	"gitlab.com/esr/cvsps/dateutil"
	"gitlab.com/esr/cvsps/internal/ordered"
)

// LineStats holds the "lines: +N -N" counts CVS reports for a revision,
// when present.
type LineStats struct {
	Added   int
	Removed int
}

// LogEntry is one per-file revision record, immutable once the parser has
// finished filling it in. Optional fields absent in the source data use
// the zero value of their type: "" for Branch/CommitID/Mergepoint, nil
// for Parent/Lines/Branches.
type LogEntry struct {
	RCS          string
	File         string
	Revision     Revision
	Branch       string // "" means trunk
	Branches     []Revision
	Branchpoints *ordered.Set
	Parent       Revision // nil only for a file's very first trunk revision
	Date         dateutil.Date
	Author       string
	Dead         bool
	Comment      string
	CommitID     string // "" means absent (pre-1.12 CVS)
	Mergepoint   string // "" means absent; "HEAD" is a legitimate value
	Lines        *LineStats
	Tags         []string // sorted, may be empty
	Synthetic    bool
}

// HasParent reports whether this is anything but a file's first trunk
// revision.
func (e *LogEntry) HasParent() bool { return e.Parent != nil }

// Validate checks the invariants every emitted LogEntry must satisfy.
func (e *LogEntry) Validate() error {
	if len(e.Revision)%2 != 0 || len(e.Revision) < 2 {
		return fmt.Errorf("%s: revision %s has odd or short length", e.RCS, e.Revision)
	}
	if e.Revision.IsMagicBranch() {
		return fmt.Errorf("%s: revision %s is an uncollapsed magic branch number", e.RCS, e.Revision)
	}
	if e.Synthetic {
		if !e.Dead {
			return fmt.Errorf("%s: synthetic revision %s is not dead", e.RCS, e.Revision)
		}
		if e.Revision[len(e.Revision)-1] != 1 {
			return fmt.Errorf("%s: synthetic revision %s has non-1 last component", e.RCS, e.Revision)
		}
	}
	return nil
}
