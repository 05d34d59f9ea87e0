// Package changeset groups parsed CVS revision records into atomic,
// ordered, parented, tagged changesets.
//
// Copyright by Eric S. Raymond
// SPDX-License-Identifier: BSD-2-Clause
package changeset

import (
	"path"
	"sort"

	"gitlab.com/esr/cvsps/cvslog"
	"gitlab.com/esr/cvsps/dateutil"
	"gitlab.com/esr/cvsps/internal/ordered"
)

// Changeset is a group of per-file revisions CVS recorded close enough
// together, on the same branch, with the same author/comment, to be
// treated as one logical commit. Mutable while the synthesizer is
// building it; treat it as read-only once Synthesize returns.
type Changeset struct {
	ID           int // 1-based; 0 means not yet numbered
	Author       string
	Branch       string // "" means HEAD/trunk
	Comment      string
	CommitID     string // "" means absent
	Date         dateutil.Date
	Branchpoints *ordered.Set
	Mergepoint   string // "" means absent; "HEAD" names the trunk
	Entries      []*cvslog.LogEntry
	Parents      []*Changeset // 0, 1 (branch parent) or 2 (branch + merge parent)
	Tags         []string
	Synthetic    bool

	files    map[string]bool
	versions map[string]bool // key: rcs + "\x00" + revision.String()
}

func fromLogEntry(e *cvslog.LogEntry) *Changeset {
	c := &Changeset{
		Author:       e.Author,
		Branch:       e.Branch,
		Comment:      e.Comment,
		CommitID:     e.CommitID,
		Date:         e.Date,
		Branchpoints: e.Branchpoints,
		Mergepoint:   e.Mergepoint,
		files:        map[string]bool{},
		versions:     map[string]bool{},
	}
	c.add(e)
	return c
}

// fromMerge builds the synthetic changeset inserted for a
// `{{mergetobranch ...}}` log-message marker: it carries no entries of
// its own, only the two parents it bridges.
func fromMerge(from, to *Changeset) *Changeset {
	return &Changeset{
		Author:  from.Author,
		Branch:  to.Branch,
		Comment: "convert-repo: CVS merge from branch " + branchLabel(from.Branch),
		Date:    from.Date,
		Parents: []*Changeset{from, to},
	}
}

func branchLabel(branch string) string {
	if branch == "" {
		return "HEAD"
	}
	return branch
}

func (c *Changeset) add(e *cvslog.LogEntry) {
	c.Synthetic = len(c.Entries) == 0 && e.Synthetic
	c.Entries = append(c.Entries, e)
	c.Date = e.Date
	c.files[e.File] = true
	c.versions[versionKey(e.RCS, e.Revision)] = true
}

func versionKey(rcs string, rev cvslog.Revision) string {
	return rcs + "\x00" + rev.String()
}

// canCover reports whether entry belongs in c.
func (c *Changeset) canCover(e *cvslog.LogEntry, fuzz int) bool {
	if !branchpointsEqual(e.Branchpoints, c.Branchpoints) {
		return false
	}
	if c.CommitID != "" {
		return e.CommitID == c.CommitID
	}
	if e.CommitID != "" {
		return false
	}
	if e.Author != c.Author || e.Branch != c.Branch || e.Comment != c.Comment {
		return false
	}
	if c.files[e.File] {
		return false
	}
	cur := c.Date.Sum()
	next := e.Date.Sum()
	return cur <= next && next < cur+int64(fuzz)
}

func branchpointsEqual(a, b *ordered.Set) bool {
	aEmpty := a == nil || a.Len() == 0
	bEmpty := b == nil || b.Len() == 0
	if aEmpty || bEmpty {
		return aEmpty == bEmpty
	}
	return a.Equal(b)
}

// AddEntry attempts to absorb e into c, returning whether it succeeded.
func (c *Changeset) AddEntry(e *cvslog.LogEntry, fuzz int) bool {
	if !c.canCover(e, fuzz) {
		return false
	}
	c.add(e)
	return true
}

// IsChild reports whether any entry of c has a parent revision present
// among other's (rcs, revision) pairs - i.e. whether c logically
// follows other in history.
func (c *Changeset) IsChild(other *Changeset) bool {
	for _, e := range c.Entries {
		if e.Parent == nil {
			continue
		}
		if other.versions[versionKey(e.RCS, e.Parent)] {
			return true
		}
	}
	return false
}

func (c *Changeset) sortEntries() {
	sort.SliceStable(c.Entries, func(i, j int) bool {
		return pathSortKey(c.Entries[i].File) < pathSortKey(c.Entries[j].File)
	})
}

// pathSortKey renders a path as directory components first, then the
// filename, matching Python's `tuple(enumerate(os.path.split(x.file)))`
// sort key in effect (split groups directory ahead of basename).
func pathSortKey(p string) string {
	dir, file := path.Split(p)
	return dir + "\x00" + file
}
