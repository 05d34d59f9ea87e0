package changeset

import (
	"testing"

	"gitlab.com/esr/cvsps/cvslog"
	"gitlab.com/esr/cvsps/dateutil"
	"gitlab.com/esr/cvsps/internal/ordered"
)

func mustRev(t *testing.T, s string) cvslog.Revision {
	t.Helper()
	rev, err := cvslog.ParseRevision(s)
	if err != nil {
		t.Fatalf("ParseRevision(%q): %v", s, err)
	}
	return rev
}

func entry(t *testing.T, rcs, file, rev string, unix int64, author, comment string) *cvslog.LogEntry {
	t.Helper()
	return &cvslog.LogEntry{
		RCS:          rcs,
		File:         file,
		Revision:     mustRev(t, rev),
		Date:         dateutil.Date{Unix: unix, Offset: 0},
		Author:       author,
		Comment:      comment,
		Branchpoints: ordered.New(),
	}
}

// Two files with matching metadata close in time group into one changeset.
func TestSynthesizeFuzzGrouping(t *testing.T) {
	log := []*cvslog.LogEntry{
		entry(t, "a,v", "a", "1.1", 1000, "alice", "init"),
		entry(t, "b,v", "b", "1.1", 1010, "alice", "init"),
	}
	cs := Synthesize(log, Options{Fuzz: 60})
	if len(cs) != 1 {
		t.Fatalf("got %d changesets, want 1", len(cs))
	}
	if len(cs[0].Entries) != 2 {
		t.Fatalf("got %d entries in changeset, want 2", len(cs[0].Entries))
	}
}

// Same as above but the gap exceeds fuzz, so two changesets result.
func TestSynthesizeFuzzExceeded(t *testing.T) {
	log := []*cvslog.LogEntry{
		entry(t, "a,v", "a", "1.1", 1000, "alice", "init"),
		entry(t, "b,v", "b", "1.1", 1120, "alice", "init"),
	}
	cs := Synthesize(log, Options{Fuzz: 60})
	if len(cs) != 2 {
		t.Fatalf("got %d changesets, want 2", len(cs))
	}
}

func TestSynthesizeSingleTrunkCommit(t *testing.T) {
	log := []*cvslog.LogEntry{
		entry(t, "a,v", "a", "1.1", 1000, "alice", "init"),
	}
	cs := Synthesize(log, Options{})
	if len(cs) != 1 {
		t.Fatalf("got %d changesets, want 1", len(cs))
	}
	if cs[0].ID != 1 {
		t.Errorf("got id %d, want 1", cs[0].ID)
	}
	if cs[0].Branch != "" {
		t.Errorf("branch should default to HEAD (empty string), got %q", cs[0].Branch)
	}
	if len(cs[0].Entries) != 1 || cs[0].Entries[0].File != "a" {
		t.Errorf("got entries %+v", cs[0].Entries)
	}
}

// Scenario 5: a synthetic "file added on branch" revision never survives
// to the final output, and nothing downstream keeps it as a parent.
func TestSynthesizeDropsSynthetic(t *testing.T) {
	trunkAdd := entry(t, "a,v", "a", "1.1", 1000, "alice", "file a was added on branch BR")
	trunkAdd.Dead = true
	trunkAdd.Synthetic = true
	bp := ordered.New("BR")
	trunkAdd.Branchpoints = bp

	trunkReal := entry(t, "a,v", "a", "1.2", 2000, "alice", "real change")
	trunkReal.Parent = mustRev(t, "1.1")

	branchReal := entry(t, "a,v", "a", "1.1.2.1", 1500, "alice", "real branch change")
	branchReal.Branch = "BR"
	branchReal.Parent = mustRev(t, "1.1")

	log := []*cvslog.LogEntry{trunkAdd, trunkReal, branchReal}
	cs := Synthesize(log, Options{Fuzz: 60})

	if len(cs) != 2 {
		t.Fatalf("got %d changesets, want 2 (synthetic must be dropped): %+v", len(cs), cs)
	}
	for _, c := range cs {
		if c.Synthetic {
			t.Errorf("synthetic changeset survived: %+v", c)
		}
		for _, p := range c.Parents {
			if p.Synthetic {
				t.Errorf("changeset %d retains a synthetic parent", c.ID)
			}
		}
	}
}

// Scenario 6: a {{mergetobranch ...}} log message inserts a synthesized
// merge changeset immediately after the merging commit.
func TestSynthesizeMergeTo(t *testing.T) {
	trunk1 := entry(t, "a,v", "a", "1.1", 1000, "alice", "first trunk commit")
	trunk2 := entry(t, "a,v", "a", "1.2", 2000, "alice", "second trunk commit")
	trunk2.Parent = mustRev(t, "1.1")

	branchBP := ordered.New("BR")
	trunk1.Branchpoints = branchBP

	onBranch := entry(t, "b,v", "b", "1.1.2.1", 3000, "alice", "merge work {{mergetobranch HEAD}}")
	onBranch.Branch = "BR"
	onBranch.Parent = mustRev(t, "1.1")

	log := []*cvslog.LogEntry{trunk1, trunk2, onBranch}
	cs := Synthesize(log, Options{Fuzz: 60})

	var found *Changeset
	for _, c := range cs {
		if len(c.Parents) == 2 {
			found = c
		}
	}
	if found == nil {
		t.Fatalf("expected a synthesized merge changeset with two parents, got %+v", cs)
	}
	if found.Comment != "convert-repo: CVS merge from branch BR" {
		t.Errorf("got comment %q", found.Comment)
	}
}

func TestChangesetIsChild(t *testing.T) {
	parentEntry := entry(t, "a,v", "a", "1.1", 1000, "alice", "init")
	childEntry := entry(t, "a,v", "a", "1.2", 2000, "alice", "change")
	childEntry.Parent = mustRev(t, "1.1")

	parent := fromLogEntry(parentEntry)
	child := fromLogEntry(childEntry)

	if !child.IsChild(parent) {
		t.Errorf("expected child to report IsChild(parent) = true")
	}
	if parent.IsChild(child) {
		t.Errorf("expected parent.IsChild(child) = false")
	}
}
