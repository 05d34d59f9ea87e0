package cvsinvoke

import (
	"fmt"
	"io"
	"strings"

	"gitlab.com/esr/cvsps/changeset"
	"gitlab.com/esr/cvsps/dateutil"
)

// FormatOptions controls the debugcvsps-compatible renderer.
type FormatOptions struct {
	Prefix    string
	Branches  map[string]bool // nil/empty means no branch filter
	Parents   bool
	Ancestors bool
	// StartEnd optionally restricts output to the inclusive range
	// between two revision markers (changeset id or tag name), mirroring
	// the -r flag.
	StartEnd []string
}

func earliestDate(cs *changeset.Changeset) dateutil.Date {
	if len(cs.Entries) == 0 {
		return cs.Date
	}
	d := cs.Entries[0].Date
	for _, e := range cs.Entries[1:] {
		if e.Date.Before(d) {
			d = e.Date
		}
	}
	return d
}

func branchLabel(b string) string {
	if b == "" {
		return "HEAD"
	}
	return b
}

// Format renders changesets in the exact layout pycvsps's debugcvsps
// produces, including the bug-for-bug trailing spaces on several
// lines.
func Format(w io.Writer, changesets []*changeset.Changeset, opts FormatOptions) {
	branchOf := map[string]int{} // branch -> latest changeset id seen
	ancestorOf := map[string]ancestorLink{}

	off := len(opts.StartEnd) > 0

	for _, cs := range changesets {
		if opts.Ancestors {
			if _, seen := branchOf[cs.Branch]; !seen && len(cs.Parents) > 0 && cs.Parents[0].ID != 0 {
				ancestorOf[cs.Branch] = ancestorLink{branch: cs.Parents[0].Branch, id: cs.Parents[0].ID}
			}
			branchOf[cs.Branch] = cs.ID
		}

		if len(opts.Branches) > 0 && !opts.Branches[branchLabel(cs.Branch)] {
			continue
		}

		if off && len(opts.StartEnd) > 0 {
			if opts.StartEnd[0] == fmt.Sprint(cs.ID) || containsString(cs.Tags, opts.StartEnd[0]) {
				off = false
			}
		}

		if !off {
			writeOne(w, cs, opts, ancestorChain(cs.Branch, ancestorOf, branchOf, opts.Ancestors))
		}

		if len(opts.StartEnd) > 1 && !off {
			if opts.StartEnd[1] == fmt.Sprint(cs.ID) || containsString(cs.Tags, opts.StartEnd[1]) {
				break
			}
		}
	}
}

type ancestorLink struct {
	branch string
	id     int
}

// ancestorChain walks the branch-parentage chain pycvsps's --ancestors
// option prints: "<branch>:<changeset-id>:<latest-id-on-that-branch>"
// entries from the current branch back to trunk.
func ancestorChain(branch string, ancestorOf map[string]ancestorLink, branchOf map[string]int, enabled bool) string {
	if !enabled {
		return ""
	}
	var chain []string
	b := branch
	for {
		link, ok := ancestorOf[b]
		if !ok {
			break
		}
		b = link.branch
		chain = append(chain, fmt.Sprintf("%s:%d:%d", branchLabel(b), link.id, branchOf[b]))
	}
	return strings.Join(chain, ",")
}

func writeOne(w io.Writer, cs *changeset.Changeset, opts FormatOptions, ancestors string) {
	date := earliestDate(cs)
	tags := cs.Tags
	tagWord := "Tag"
	if len(tags) > 1 {
		tagWord = "Tags"
	}
	tagList := strings.Join(tags, ",")
	if tagList == "" {
		tagList = "(none)"
	}

	fmt.Fprint(w, "---------------------\n")
	fmt.Fprintf(w, "PatchSet %d \n", cs.ID)
	fmt.Fprintf(w, "Date: %s\n", dateutil.DateStr(date, "%Y/%m/%d %H:%M:%S %1%2"))
	fmt.Fprintf(w, "Author: %s\n", cs.Author)
	fmt.Fprintf(w, "Branch: %s\n", branchLabel(cs.Branch))
	fmt.Fprintf(w, "%s: %s \n", tagWord, tagList)
	if cs.Branchpoints != nil && cs.Branchpoints.Len() > 0 {
		fmt.Fprintf(w, "Branchpoints: %s \n", cs.Branchpoints.String())
	}
	if opts.Parents && len(cs.Parents) > 0 {
		if len(cs.Parents) > 1 {
			ids := make([]string, len(cs.Parents))
			for i, p := range cs.Parents {
				ids[i] = fmt.Sprint(p.ID)
			}
			fmt.Fprintf(w, "Parents: %s\n", strings.Join(ids, ","))
		} else {
			fmt.Fprintf(w, "Parent: %d\n", cs.Parents[0].ID)
		}
	}
	if ancestors != "" {
		fmt.Fprintf(w, "Ancestors: %s\n", ancestors)
	}

	fmt.Fprint(w, "Log:\n")
	fmt.Fprintf(w, "%s\n\n", cs.Comment)
	fmt.Fprint(w, "Members: \n")
	for _, e := range cs.Entries {
		fn := e.File
		if strings.HasPrefix(fn, opts.Prefix) {
			fn = fn[len(opts.Prefix):]
		}
		parent := "INITIAL"
		if e.Parent != nil {
			parent = e.Parent.String()
		}
		dead := ""
		if e.Dead {
			dead = "(DEAD)"
		}
		fmt.Fprintf(w, "\t%s:%s->%s%s \n", fn, parent, e.Revision.String(), dead)
	}
	fmt.Fprint(w, "\n")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
