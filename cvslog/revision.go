// Package cvslog implements the log parser stage of cvsps: turning the
// textual output of `cvs rlog`/`cvs log` into a normalized, ordered
// sequence of per-file revision records (LogEntry).
//
// Copyright by Eric S. Raymond
// SPDX-License-Identifier: BSD-2-Clause
package cvslog

import (
	"fmt"
	"strconv"
	"strings"
)

// Revision is a CVS dotted revision number, e.g. "1.2.3.4" becomes
// Revision{1,2,3,4}. Unlike a fixed-size tuple, branch depth is
// unbounded, so this is a slice rather than an array.
type Revision []int

// ParseRevision parses a dotted revision string such as "1.2.3.4".
func ParseRevision(s string) (Revision, error) {
	parts := strings.Split(s, ".")
	rev := make(Revision, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("malformed revision %q: %v", s, err)
		}
		rev[i] = n
	}
	return rev, nil
}

// String renders a Revision in dotted form.
func (r Revision) String() string {
	parts := make([]string, len(r))
	for i, n := range r {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Equal reports whether r and other name the same revision.
func (r Revision) Equal(other Revision) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy, so callers may trim or reslice
// without aliasing the original.
func (r Revision) Clone() Revision {
	out := make(Revision, len(r))
	copy(out, r)
	return out
}

// BranchPrefix returns r with its last component dropped - the revision
// tuple identifying "the branch (or trunk) this revision lives on", used
// as a key into the parent-resolution version map.
func (r Revision) BranchPrefix() Revision {
	if len(r) == 0 {
		return nil
	}
	return r[:len(r)-1].Clone()
}

// BranchRoot returns r with its last two components dropped - the point
// on the parent branch from which this branch sprouted. Returns nil (not
// an empty non-nil slice) both when r is too short and when the result
// would have zero length, so that "no branch root" has one unambiguous
// representation throughout the package.
func (r Revision) BranchRoot() Revision {
	if len(r) <= 2 {
		return nil
	}
	return r[:len(r)-2].Clone()
}

// IsMagicBranch reports whether r is of the form a.b...0.n, CVS's
// encoding of a branch number within the symbolic-names table.
func (r Revision) IsMagicBranch() bool {
	return len(r) > 2 && len(r)%2 == 0 && r[len(r)-2] == 0
}

// CollapseMagicBranch normalizes a magic branch number (a.b.0.n) to its
// plain form (a.b.n). Revisions that aren't magic branch numbers are
// returned unchanged.
func (r Revision) CollapseMagicBranch() Revision {
	if !r.IsMagicBranch() {
		return r
	}
	out := make(Revision, 0, len(r)-1)
	out = append(out, r[:len(r)-2]...)
	out = append(out, r[len(r)-1])
	return out
}

// IsNormalBranchNumber reports whether r (as read straight from the
// symbolic-names table, not yet collapsed) names an ordinary CVS branch:
// even-numbered last component with a zero penultimate component.
func (r Revision) IsNormalBranchNumber() bool {
	return len(r) >= 2 && r[len(r)-2] == 0 && r[len(r)-1]%2 == 0
}

// IsVendorBranch reports whether r is exactly the vendor-branch marker
// (1, 1, 1).
func (r Revision) IsVendorBranch() bool {
	return len(r) == 3 && r[0] == 1 && r[1] == 1 && r[2] == 1
}

// Len reports the number of dotted components.
func (r Revision) Len() int { return len(r) }
