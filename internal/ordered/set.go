// Package ordered provides an insertion-ordered string set, used for
// the branchpoint sets of log entries and changesets so that they do not
// introduce nondeterministic iteration order.
//
// Copyright by Eric S. Raymond
// SPDX-License-Identifier: BSD-2-Clause
package ordered

import (
	"bytes"
	"encoding/gob"
	"sort"
	"strings"

	linkedhashset "github.com/emirpasic/gods/sets/linkedhashset"
)

// Set is like a plain Go map[string]bool but remembers insertion order,
// which matters for reproducing cvsps's deterministic output.
type Set struct {
	set *linkedhashset.Set
}

// New returns a Set seeded with the given elements, in order, deduplicated.
func New(elements ...string) *Set {
	s := &Set{set: linkedhashset.New()}
	for _, e := range elements {
		s.set.Add(e)
	}
	return s
}

// Add inserts item if not already present.
func (s *Set) Add(item string) {
	s.set.Add(item)
}

// Contains reports whether item is a member.
func (s *Set) Contains(item string) bool {
	return s.set.Contains(item)
}

// Len returns the number of members.
func (s *Set) Len() int {
	return s.set.Size()
}

// Values returns members in insertion order.
func (s *Set) Values() []string {
	v := make([]string, 0, s.set.Size())
	it := s.set.Iterator()
	for it.Next() {
		v = append(v, it.Value().(string))
	}
	return v
}

// SortedSlice returns members sorted lexically - the shape every tag list
// and branchpoint list in the output format needs.
func (s *Set) SortedSlice() []string {
	v := s.Values()
	sort.Strings(v)
	return v
}

// Equal reports whether two sets contain exactly the same members,
// irrespective of insertion order. Used by the changeset grouping
// predicate, which requires branchpoints to match exactly.
func (s *Set) Equal(other *Set) bool {
	if s == nil || other == nil {
		return s == other || (s.Len() == 0 && other.Len() == 0)
	}
	if s.Len() != other.Len() {
		return false
	}
	for _, v := range s.Values() {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// GobEncode lets a Set cross the cvscache gob boundary: the
// linkedhashset it wraps has no exported fields for gob to walk, so
// the set is flattened to its insertion-ordered value slice instead.
func (s *Set) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	values := []string{}
	if s != nil {
		values = s.Values()
	}
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode is the inverse of GobEncode.
func (s *Set) GobDecode(data []byte) error {
	var values []string
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return err
	}
	s.set = linkedhashset.New()
	for _, v := range values {
		s.set.Add(v)
	}
	return nil
}

// String renders the set as a sorted comma list, or "(none)" when empty -
// the rendering the debugcvsps-compatible formatter uses for the
// Branchpoints line.
func (s *Set) String() string {
	if s == nil || s.Len() == 0 {
		return "(none)"
	}
	return strings.Join(s.SortedSlice(), ",")
}
