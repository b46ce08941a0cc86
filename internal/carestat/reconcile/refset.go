package reconcile

import (
	"fmt"
	"sort"
)

// ReferenceSet is a read-only snapshot of valid values for one key column,
// or of key tuples already present in the target. Members are deduplicated
// and kept in a deterministic order so that seeded random choice is
// reproducible.
type ReferenceSet struct {
	name    string
	members []any
	index   map[Key]struct{}
}

// NewReferenceSet builds a set of single values.
func NewReferenceSet(name string, values ...any) *ReferenceSet {
	s := &ReferenceSet{name: name, index: make(map[Key]struct{}, len(values))}
	for _, v := range values {
		k := KeyOf(v)
		if _, dup := s.index[k]; dup {
			continue
		}
		s.index[k] = struct{}{}
		s.members = append(s.members, v)
	}
	sort.SliceStable(s.members, func(i, j int) bool {
		return lessValue(s.members[i], s.members[j])
	})
	return s
}

// NewTupleSet builds a set of composite keys, one tuple per existing row.
func NewTupleSet(name string, tuples ...[]any) *ReferenceSet {
	values := make([]any, len(tuples))
	for i, t := range tuples {
		values[i] = t
	}
	return NewReferenceSet(name, values...)
}

func (s *ReferenceSet) Name() string { return s.name }

func (s *ReferenceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Contains reports whether v (a value or a []any tuple) is a member.
func (s *ReferenceSet) Contains(v any) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[KeyOf(v)]
	return ok
}

// Values returns the members in their deterministic order.
func (s *ReferenceSet) Values() []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s.members))
	copy(out, s.members)
	return out
}

// MaxInt returns the largest integer member, false when there is none.
func (s *ReferenceSet) MaxInt() (int64, bool) {
	var (
		max   int64
		found bool
	)
	if s == nil {
		return 0, false
	}
	for _, m := range s.members {
		if v, ok := asInt64(m); ok && (!found || v > max) {
			max, found = v, true
		}
	}
	return max, found
}

func (s *ReferenceSet) at(i int) any {
	return s.members[i]
}

// ReferenceSets maps a reference name to its snapshot.
type ReferenceSets map[string]*ReferenceSet

// Get returns the named set or ErrUnknownReferenceSet.
func (rs ReferenceSets) Get(name string) (*ReferenceSet, error) {
	s, ok := rs[name]
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReferenceSet, name)
	}
	return s, nil
}

// ClaimSet is the mutable working copy of a reference set used during a
// single reconciliation pass. It starts with the store's keys and grows with
// every key an accepted record commits to.
type ClaimSet struct {
	claimed map[Key]struct{}
}

// NewClaimSet seeds a claim set from an existing-keys snapshot (may be nil).
func NewClaimSet(seed *ReferenceSet) *ClaimSet {
	c := &ClaimSet{claimed: make(map[Key]struct{}, seed.Len())}
	if seed != nil {
		for k := range seed.index {
			c.claimed[k] = struct{}{}
		}
	}
	return c
}

func (c *ClaimSet) Has(k Key) bool {
	_, ok := c.claimed[k]
	return ok
}

func (c *ClaimSet) Claim(k Key) {
	c.claimed[k] = struct{}{}
}

func (c *ClaimSet) Len() int { return len(c.claimed) }
