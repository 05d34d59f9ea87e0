package changeset

import (
	"fmt"
	"regexp"
	"sort"

	"gitlab.com/esr/cvsps/cvslog"
	"gitlab.com/esr/cvsps/internal/ordered"
)

// DefaultFuzz is the default commit-time fuzz window, in seconds, used
// to group file-centric revisions with no commitid into one changeset.
const DefaultFuzz = 60

var (
	defaultMergeFrom = regexp.MustCompile(`\{\{mergefrombranch ([-\w]+)\}\}`)
	defaultMergeTo   = regexp.MustCompile(`\{\{mergetobranch ([-\w]+)\}\}`)
)

// Options configures one Synthesize call.
type Options struct {
	// Fuzz is the commit-time window in seconds; zero selects DefaultFuzz.
	Fuzz int
	// MergeFrom/MergeTo override the default {{mergefrombranch ...}} /
	// {{mergetobranch ...}} log-message marker patterns. A nil pattern
	// selects the default; neither marker kind can be disabled.
	MergeFrom *regexp.Regexp
	MergeTo   *regexp.Regexp
	// OnWarning receives recoverable-condition messages (unknown
	// mergefrom branch target, an is_child cycle) instead of them being
	// silently dropped.
	OnWarning func(msg string)
}

func (o Options) fuzz() int {
	if o.Fuzz <= 0 {
		return DefaultFuzz
	}
	return o.Fuzz
}

func (o Options) warn(format string, args ...interface{}) {
	if o.OnWarning != nil {
		o.OnWarning(fmt.Sprintf(format, args...))
	}
}

type oddPair struct{ l, r *Changeset }

// Synthesize runs the full grouping -> ordering -> parent-graph ->
// synthetic-purge -> numbering pipeline, grounded on
// pycvsps/cvsps.py:createchangeset.
func Synthesize(log []*cvslog.LogEntry, opts Options) []*Changeset {
	fuzz := opts.fuzz()
	mergeFrom := opts.MergeFrom
	if mergeFrom == nil {
		mergeFrom = defaultMergeFrom
	}
	mergeTo := opts.MergeTo
	if mergeTo == nil {
		mergeTo = defaultMergeTo
	}

	grouped := groupEntries(log, fuzz)
	for _, c := range grouped {
		c.sortEntries()
	}

	odd := orderChangesets(grouped)
	collectTags(grouped)
	grouped = buildParentGraph(grouped, mergeFrom, mergeTo, opts)
	grouped = purgeSynthetic(grouped)
	number(grouped)
	reportOdd(odd, opts)
	return grouped
}

// mindateFor builds, per commitid, the earliest date any entry bearing
// it carries - used only to order groups of commitid'd entries by the
// time the underlying commit actually happened.
func mindateFor(log []*cvslog.LogEntry) map[string]int64 {
	mindate := map[string]int64{}
	for _, e := range log {
		if e.CommitID == "" {
			continue
		}
		sum := e.Date.Sum()
		if cur, ok := mindate[e.CommitID]; !ok || sum < cur {
			mindate[e.CommitID] = sum
		}
	}
	return mindate
}

func groupEntries(log []*cvslog.LogEntry, fuzz int) []*Changeset {
	mindate := mindateFor(log)

	sorted := append([]*cvslog.LogEntry(nil), log...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ad, aok := mindate[a.CommitID]
		bd, bok := mindate[b.CommitID]
		if !aok {
			ad = -1
		}
		if !bok {
			bd = -1
		}
		if ad != bd {
			return ad < bd
		}
		if a.CommitID != b.CommitID {
			return a.CommitID < b.CommitID
		}
		if a.Comment != b.Comment {
			return a.Comment < b.Comment
		}
		if a.Author != b.Author {
			return a.Author < b.Author
		}
		if a.Branch != b.Branch {
			return a.Branch < b.Branch
		}
		return a.Date.Sum() < b.Date.Sum()
	})

	var out []*Changeset
	var cur *Changeset
	for _, e := range sorted {
		if cur != nil && cur.AddEntry(e, fuzz) {
			continue
		}
		cur = fromLogEntry(e)
		out = append(out, cur)
	}
	return out
}

// orderChangesets stable-sorts changesets by the cscmp comparator,
// recording pairs where is_child disagrees in both directions ("odd"
// pairs) for later warning.
func orderChangesets(cs []*Changeset) []oddPair {
	var odd []oddPair
	less := func(i, j int) bool {
		return cscmp(cs[i], cs[j], &odd) < 0
	}
	sort.SliceStable(cs, less)
	return odd
}

func cscmp(l, r *Changeset, odd *[]oddPair) int {
	d := int(l.Date.Sum() - r.Date.Sum())
	if d != 0 {
		return sign(d)
	}

	lIsChild := l.IsChild(r)
	rIsChild := r.IsChild(l)
	switch {
	case lIsChild && rIsChild:
		*odd = append(*odd, oddPair{l, r})
		d = -1
	case lIsChild:
		d = 1
	case rIsChild:
		d = -1
	}

	if d == 0 {
		d = len(r.Entries) - len(l.Entries) // larger first
	}
	if d == 0 {
		d = compareFileLists(l.Entries, r.Entries)
	}
	if d == 0 {
		d = setLen(l.Branchpoints) - setLen(r.Branchpoints)
	}
	return sign(d)
}

func sign(d int) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}

func setLen(s *ordered.Set) int {
	if s == nil {
		return 0
	}
	return s.Len()
}

func compareFileLists(l, r []*cvslog.LogEntry) int {
	for i := 0; i < len(l) && i < len(r); i++ {
		if l[i].File != r[i].File {
			if l[i].File < r[i].File {
				return -1
			}
			return 1
		}
	}
	return len(l) - len(r)
}

// collectTags assigns to each changeset only the tags for which it is
// the last changeset in order to carry them.
func collectTags(cs []*Changeset) {
	lastCarrier := map[string]*Changeset{}
	for _, c := range cs {
		for _, e := range c.Entries {
			for _, tag := range e.Tags {
				lastCarrier[tag] = c
			}
		}
	}
	for _, c := range cs {
		seen := map[string]bool{}
		var tags []string
		for _, e := range c.Entries {
			for _, tag := range e.Tags {
				if seen[tag] {
					continue
				}
				seen[tag] = true
				if lastCarrier[tag] == c {
					tags = append(tags, tag)
				}
			}
		}
		sort.Strings(tags)
		c.Tags = tags
	}
}

// buildParentGraph is the direct port of createchangeset's main loop:
// primary-parent selection by branchpoint scan, synthetic-ancestor
// skip-through, mergepoint parent, mergefrom parent, and mergeto
// changeset insertion. It mutates cs in place and, because mergeto
// inserts elements, returns the (possibly longer) slice.
func buildParentGraph(cs []*Changeset, mergeFrom, mergeTo *regexp.Regexp, opts Options) []*Changeset {
	branches := map[string]int{} // branch name -> index of latest changeset seen on it
	n := len(cs)
	i := 0
	for i < n {
		c := cs[i]

		var parentIdx = -1
		if idx, ok := branches[c.Branch]; ok {
			parentIdx = idx
		} else {
			for candidate := 0; candidate < i; candidate++ {
				if !setContains(cs[candidate].Branchpoints, c.Branch) {
					if parentIdx != -1 {
						break
					}
					continue
				}
				parentIdx = candidate
			}
		}

		if parentIdx != -1 {
			p := cs[parentIdx]
			for p != nil && p.Synthetic {
				if len(p.Parents) > 1 {
					panic("synthetic changeset cannot have multiple parents")
				}
				if len(p.Parents) == 1 {
					p = p.Parents[0]
				} else {
					p = nil
				}
			}
			if p != nil {
				c.Parents = append(c.Parents, p)
			}
		}

		if c.Mergepoint != "" {
			target := c.Mergepoint
			if target == "HEAD" {
				target = ""
			}
			if idx, ok := branches[target]; ok {
				c.Parents = append(c.Parents, cs[idx])
			}
		}

		if mergeFrom != nil {
			if m := mergeFrom.FindStringSubmatch(c.Comment); m != nil {
				target := m[1]
				if target == "HEAD" {
					target = ""
				}
				if idx, ok := branches[target]; ok {
					candidate := cs[idx]
					if target != c.Branch && !candidate.Synthetic {
						c.Parents = append(c.Parents, candidate)
					}
				} else {
					opts.warn("warning: CVS commit message references non-existent branch %q:\n%s\n", m[1], c.Comment)
				}
			}
		}

		if mergeTo != nil {
			if m := mergeTo.FindStringSubmatch(c.Comment); m != nil {
				target := ""
				if len(m) > 1 && m[1] != "" {
					target = m[1]
					if target == "HEAD" {
						target = ""
					}
				}
				if idx, ok := branches[target]; ok && target != c.Branch {
					merged := fromMerge(c, cs[idx])
					cs = insertAt(cs, i+1, merged)
					branches[target] = i + 1
					n++
					i += 2
					continue
				}
			}
		}

		branches[c.Branch] = i
		i++
	}
	return cs
}

func insertAt(cs []*Changeset, idx int, c *Changeset) []*Changeset {
	out := make([]*Changeset, 0, len(cs)+1)
	out = append(out, cs[:idx]...)
	out = append(out, c)
	out = append(out, cs[idx:]...)
	return out
}

func setContains(s *ordered.Set, v string) bool {
	if s == nil {
		return false
	}
	return s.Contains(v)
}

func purgeSynthetic(cs []*Changeset) []*Changeset {
	out := cs[:0:0]
	for _, c := range cs {
		if !c.Synthetic {
			out = append(out, c)
		}
	}
	return out
}

func number(cs []*Changeset) {
	for i, c := range cs {
		c.ID = i + 1
	}
}

func reportOdd(odd []oddPair, opts Options) {
	for _, pair := range odd {
		if pair.l.ID != 0 && pair.r.ID != 0 {
			opts.warn("warning: changeset %d is both before and after %d\n", pair.l.ID, pair.r.ID)
		}
	}
}
