package cvslog

import (
	"strings"
	"testing"
)

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Single trunk commit.
func TestParseLogSingleTrunkCommit(t *testing.T) {
	const dump = `RCS file: a,v
Working file: a
head: 1.1
branch:
locks: strict
access list:
symbolic names:
keyword substitution: kv
total revisions: 1;	selected revisions: 1
description:
----------------------------
revision 1.1
date: 2020/06/15 12:30:45;  author: alice;  state: Exp;
init
=============================================================================
`
	entries, err := ParseLog(strings.NewReader(dump), Options{RLog: false})
	assertNoError(t, err)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.File != "a" || e.Author != "alice" || e.Comment != "init" {
		t.Errorf("got %+v", e)
	}
	if e.Revision.String() != "1.1" {
		t.Errorf("got revision %s, want 1.1", e.Revision)
	}
	if e.HasParent() {
		t.Errorf("first trunk revision should have no parent, got %v", e.Parent)
	}
	if e.Dead {
		t.Errorf("revision should not be dead")
	}
}

// Branch creation.
func TestParseLogBranchCreation(t *testing.T) {
	const dump = `RCS file: a,v
Working file: a
head: 1.1
branch:
locks: strict
access list:
symbolic names:
	BR: 1.1.0.2
keyword substitution: kv
total revisions: 2;	selected revisions: 2
description:
----------------------------
revision 1.1
date: 2020/06/15 12:30:45;  author: alice;  state: Exp;
init
----------------------------
revision 1.1.2.1
date: 2020/06/16 09:00:00;  author: alice;  state: Exp;
on branch
=============================================================================
`
	entries, err := ParseLog(strings.NewReader(dump), Options{RLog: false})
	assertNoError(t, err)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	trunk, branch := entries[0], entries[1]
	if trunk.Revision.String() != "1.1" {
		trunk, branch = entries[1], entries[0]
	}
	if !trunk.Branchpoints.Contains("BR") {
		t.Errorf("trunk revision should carry branchpoint BR, got %v", trunk.Branchpoints)
	}
	if branch.Branch != "BR" {
		t.Errorf("branch revision should have branch BR, got %q", branch.Branch)
	}
	if !branch.Parent.Equal(trunk.Revision) {
		t.Errorf("branch revision parent = %s, want %s", branch.Parent, trunk.Revision)
	}
}

// Synthetic revision detection.
func TestParseLogSyntheticDetection(t *testing.T) {
	const dump = `RCS file: a,v
Working file: a
head: 1.2
branch:
locks: strict
access list:
symbolic names:
	BR: 1.1.0.2
keyword substitution: kv
total revisions: 3;	selected revisions: 3
description:
----------------------------
revision 1.2
date: 2020/06/17 10:00:00;  author: alice;  state: Exp;
real change
----------------------------
revision 1.1
date: 2020/06/15 12:30:45;  author: alice;  state: dead;
file a was added on branch BR
----------------------------
revision 1.1.2.1
date: 2020/06/16 09:00:00;  author: alice;  state: Exp;
real branch change
=============================================================================
`
	entries, err := ParseLog(strings.NewReader(dump), Options{RLog: false})
	assertNoError(t, err)
	var synthetic *LogEntry
	for _, e := range entries {
		if e.Revision.String() == "1.1" {
			synthetic = e
		}
	}
	if synthetic == nil || !synthetic.Synthetic {
		t.Fatalf("expected revision 1.1 to be marked synthetic, got %+v", synthetic)
	}
	if !synthetic.Dead {
		t.Errorf("synthetic revision must be dead")
	}
}

func TestParseLogRejectsAbortedLog(t *testing.T) {
	const dump = "cvs [rlog aborted]: no such repository\n"
	_, err := ParseLog(strings.NewReader(dump), Options{RLog: true})
	if err == nil {
		t.Fatalf("expected LogError")
	}
	if _, ok := err.(*LogError); !ok {
		t.Errorf("got error of type %T, want *LogError", err)
	}
}

func TestParseLogAttachesTagToRevision(t *testing.T) {
	const dump = `RCS file: a,v
Working file: a
head: 1.1
branch:
locks: strict
access list:
symbolic names:
	REL-1-0: 1.1
keyword substitution: kv
total revisions: 1;	selected revisions: 1
description:
----------------------------
revision 1.1
date: 2020/06/15 12:30:45;  author: alice;  state: Exp;
init
=============================================================================
`
	entries, err := ParseLog(strings.NewReader(dump), Options{RLog: false})
	assertNoError(t, err)
	if len(entries[0].Tags) != 1 || entries[0].Tags[0] != "REL-1-0" {
		t.Errorf("got tags %v, want [REL-1-0]", entries[0].Tags)
	}
}
