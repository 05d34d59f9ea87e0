package cvslog

import "gitlab.com/esr/cvsps/internal/ordered"

// newBranchpointSet computes the set of branch names whose first revision
// is rev: a branch qualifies either because it's a normal branch
// number rooted at rev, or because it's the vendor-branch marker and
// rev lists (1,1,1) among the branches starting at it.
func newBranchpointSet(branchmap map[string]string, rev Revision, branches []Revision) *ordered.Set {
	set := ordered.New()
	for name, revStr := range branchmap {
		parts, err := ParseRevision(revStr)
		if err != nil || len(parts) < 2 {
			continue // unparseable or malformed tag revision: skip silently
		}
		if parts.IsNormalBranchNumber() {
			if parts.BranchRoot().Equal(rev) {
				set.Add(name)
			}
			continue
		}
		if parts.IsVendorBranch() {
			for _, b := range branches {
				if b.Equal(parts) {
					set.Add(name)
					break
				}
			}
		}
	}
	return set
}
