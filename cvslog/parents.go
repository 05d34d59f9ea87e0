package cvslog

import "sort"

func versionKey(rcs string, branch Revision) string {
	return rcs + "\x00" + branch.String()
}

// resolveParents fills in e.Parent for every entry in newLog: walk oldlog then
// newlog in (rcs, revision) order, tracking the most recently seen
// revision per (rcs, branch); an entry's parent is whatever was most
// recently seen on its own branch, or its branch-root revision when
// nothing has been seen yet.
func resolveParents(newLog []*LogEntry, priorLog []*LogEntry) {
	versions := make(map[string]Revision, len(priorLog)+len(newLog))

	if len(priorLog) > 0 {
		sorted := append([]*LogEntry(nil), priorLog...)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].RCS != sorted[j].RCS {
				return sorted[i].RCS < sorted[j].RCS
			}
			return revisionLess(sorted[i].Revision, sorted[j].Revision)
		})
		for _, e := range sorted {
			versions[versionKey(e.RCS, e.Revision.BranchPrefix())] = e.Revision
		}
	}

	for _, e := range newLog {
		key := versionKey(e.RCS, e.Revision.BranchPrefix())
		if p, ok := versions[key]; ok {
			e.Parent = p.Clone()
		} else {
			e.Parent = e.Revision.BranchRoot()
		}
		versions[key] = e.Revision
	}
}
