package cvslog

import cmap "github.com/orcaman/concurrent-map"

// internTable deduplicates repeated strings the way pycvsps's _scache
// dictionary does, so that the many repetitions of the same author name
// or commit comment across thousands of revisions share one allocation.
//
// A concurrent map (rather than a plain map[string]string) is used here
// because createlog's public contract - cvsps accepts more than one
// directory argument and folds their logs together - is the natural
// place a future caller would parallelize per-directory log collection;
// github.com/orcaman/concurrent-map already sits in this module's
// dependency graph for exactly this kind of safely-shared lookup table.
type internTable struct {
	table cmap.ConcurrentMap
}

func newInternTable() *internTable {
	return &internTable{table: cmap.New()}
}

// intern returns the canonical copy of s, storing s as canonical if this
// is the first time it has been seen.
func (t *internTable) intern(s string) string {
	if v, ok := t.table.Get(s); ok {
		return v.(string)
	}
	t.table.SetIfAbsent(s, s)
	v, _ := t.table.Get(s)
	return v.(string)
}
