package cvscache

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/esr/cvsps/cvslog"
	"gitlab.com/esr/cvsps/dateutil"
)

func mustRev(t *testing.T, s string) cvslog.Revision {
	t.Helper()
	rev, err := cvslog.ParseRevision(s)
	if err != nil {
		t.Fatalf("ParseRevision(%q): %v", s, err)
	}
	return rev
}

func entry(t *testing.T, rcs, rev string, unix int64) *cvslog.LogEntry {
	t.Helper()
	return &cvslog.LogEntry{
		RCS:      rcs,
		File:     rcs,
		Revision: mustRev(t, rev),
		Date:     dateutil.Date{Unix: unix},
		Author:   "alice",
		Comment:  "c",
	}
}

func TestMergeAcceptsNonOverlappingWindow(t *testing.T) {
	prior := []*cvslog.LogEntry{entry(t, "a,v", "1.1", 1000)}
	fresh := []*cvslog.LogEntry{entry(t, "a,v", "1.2", 2000)}

	merged, err := Merge(prior, fresh)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged) != 2 || merged[0] != prior[0] || merged[1] != fresh[0] {
		t.Fatalf("Merge produced %v, want prior then fresh in date order", merged)
	}
}

// A later-collected entry dated before (or at) the prior cache's last
// entry is a genuine overlap even though no (rcs, revision) pair
// literally repeats.
func TestMergeRejectsOverlappingWindowWithNoDuplicateRevisions(t *testing.T) {
	prior := []*cvslog.LogEntry{entry(t, "a,v", "1.1", 2000)}
	fresh := []*cvslog.LogEntry{entry(t, "b,v", "1.1", 1500)}

	if _, err := Merge(prior, fresh); err == nil {
		t.Fatal("Merge: expected overlap error, got nil")
	}
}

// Conversely, an identical (rcs, revision) pair reappearing after the
// prior window closed is not itself an overlap.
func TestMergeToleratesRepeatedRevisionOutsideWindow(t *testing.T) {
	prior := []*cvslog.LogEntry{entry(t, "a,v", "1.1", 1000)}
	fresh := []*cvslog.LogEntry{entry(t, "a,v", "1.1", 2000)}

	if _, err := Merge(prior, fresh); err != nil {
		t.Fatalf("Merge: unexpected overlap error: %v", err)
	}
}

func TestMergeSortsFreshBatchByDate(t *testing.T) {
	fresh := []*cvslog.LogEntry{
		entry(t, "b,v", "1.1", 3000),
		entry(t, "a,v", "1.1", 1000),
	}
	merged, err := Merge(nil, fresh)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged) != 2 || merged[0].Date.Unix != 1000 || merged[1].Date.Unix != 3000 {
		t.Fatalf("Merge(nil, fresh) = %v, want date-sorted fresh batch", merged)
	}
}

// Store followed by Load round-trips entries, including an
// update-mode merge against what was just written.
func TestStoreLoadUpdateRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "cvscache")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "cache")

	first := []*cvslog.LogEntry{entry(t, "a,v", "1.1", 1000)}
	if err := Store(path, first); err != nil {
		t.Fatalf("Store: %v", err)
	}

	loaded, err := Load(path, ModeUpdate)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].RCS != "a,v" {
		t.Fatalf("Load = %v, want the entry just stored", loaded)
	}

	since, ok := LastDate(loaded)
	if !ok || since.Unix != 1000 {
		t.Fatalf("LastDate(loaded) = %v, %v, want 1000, true", since, ok)
	}

	fresh := []*cvslog.LogEntry{entry(t, "a,v", "1.2", 2000)}
	merged, err := Merge(loaded, fresh)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := Store(path, merged); err != nil {
		t.Fatalf("Store: %v", err)
	}

	final, err := Load(path, ModeRead)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("Load after update = %d entries, want 2", len(final))
	}
}

func TestFileNameJoinsAlphanumericRuns(t *testing.T) {
	got := FileName(":pserver:user@server:/path/to/repo", "module")
	if want := "pserver.user-server.path-to-repo.module.cache"; got != want {
		t.Fatalf("FileName = %q, want %q", got, want)
	}
}
