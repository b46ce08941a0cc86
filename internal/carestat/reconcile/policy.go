package reconcile

import (
	"fmt"
	"strings"
)

// IdentityAction decides what happens to a record whose identity is taken.
type IdentityAction int

const (
	IdentitySkip IdentityAction = iota
	// IdentityReassign gives the record a fresh integer id one past the
	// highest id known so far. Ids handed out are never reused.
	IdentityReassign
)

// Scope selects which keys an identity is checked against.
type Scope int

const (
	// ScopeBatch checks against the store and earlier records of the batch.
	ScopeBatch Scope = iota
	// ScopeStore checks against persisted rows only; duplicates inside the
	// batch are left to the unique rules.
	ScopeStore
)

type IdentityRule struct {
	Fields []string
	Set    string
	Action IdentityAction
	Scope  Scope
}

// FKAction decides how an absent or dangling foreign key is repaired.
type FKAction int

const (
	FKRemap FKAction = iota
	FKNull
	FKDrop
)

var fkActionNames = map[FKAction]string{FKRemap: "remap", FKNull: "null", FKDrop: "drop"}

func (a FKAction) String() string { return fkActionNames[a] }

// ParseFKAction accepts "remap", "null" or "drop".
func ParseFKAction(s string) (FKAction, error) {
	for a, name := range fkActionNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown foreign key action %q", ErrInvalidPolicy, s)
}

type ForeignKeyRule struct {
	Field    string
	Set      string
	Action   FKAction
	Nullable bool
}

// CollisionAction decides how a claimed unique key is resolved.
type CollisionAction int

const (
	CollisionSkip CollisionAction = iota
	CollisionSuffix
	CollisionRegenerate
)

var collisionNames = map[CollisionAction]string{
	CollisionSkip:       "skip",
	CollisionSuffix:     "suffix",
	CollisionRegenerate: "regenerate",
}

func (a CollisionAction) String() string { return collisionNames[a] }

// ParseCollisionAction accepts "skip", "suffix" or "regenerate".
func ParseCollisionAction(s string) (CollisionAction, error) {
	for a, name := range collisionNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown collision action %q", ErrInvalidPolicy, s)
}

// DefaultMaxAttempts caps random regeneration per round.
const DefaultMaxAttempts = 10000

// UniqueRule declares a single or composite uniqueness constraint.
type UniqueRule struct {
	Name   string
	Fields []string
	// Set holds keys already persisted; empty means none.
	Set    string
	Action CollisionAction
	// Vary is the field rewritten on collision.
	Vary        string
	Generator   Generator
	MaxAttempts int
	Fallback    *Fallback
}

func (u UniqueRule) maxAttempts() int {
	if u.MaxAttempts > 0 {
		return u.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Fallback varies a second key field once regeneration of Vary has failed
// MaxAttempts times, then retries Vary again. It is tried Rounds times.
type Fallback struct {
	Field     string
	Generator Generator
	Rounds    int
}

func (f *Fallback) rounds() int {
	if f.Rounds > 0 {
		return f.Rounds
	}
	return 1
}

// CheckRule repairs a non-key field that violates a check constraint.
type CheckRule struct {
	Field  string
	Valid  func(any) bool
	Repair Generator
}

// Policy is the full set of repair rules of one table.
type Policy struct {
	Table       string
	Identity    *IdentityRule
	ForeignKeys []ForeignKeyRule
	Unique      []UniqueRule
	Checks      []CheckRule
}

// Sets lists every reference set the policy reads.
func (p Policy) Sets() []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	if p.Identity != nil {
		add(p.Identity.Set)
	}
	for _, fk := range p.ForeignKeys {
		add(fk.Set)
	}
	for _, u := range p.Unique {
		add(u.Set)
		if g, ok := u.Generator.(FromSet); ok {
			add(string(g))
		}
		if u.Fallback != nil {
			if g, ok := u.Fallback.Generator.(FromSet); ok {
				add(string(g))
			}
		}
	}
	return out
}

func (p Policy) foreignKey(field string) (ForeignKeyRule, bool) {
	for _, fk := range p.ForeignKeys {
		if fk.Field == field {
			return fk, true
		}
	}
	return ForeignKeyRule{}, false
}

func invalid(table, format string, args ...any) error {
	return fmt.Errorf("%w: table %s: %s", ErrInvalidPolicy, table, fmt.Sprintf(format, args...))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Validate rejects policies whose repairs could break the invariants they
// are meant to establish, and policies naming sets missing from refs.
func (p Policy) Validate(refs ReferenceSets) error {
	for _, name := range p.Sets() {
		if _, err := refs.Get(name); err != nil {
			return fmt.Errorf("table %s: %w", p.Table, err)
		}
	}

	if id := p.Identity; id != nil {
		if len(id.Fields) == 0 {
			return invalid(p.Table, "identity has no fields")
		}
		if id.Action == IdentityReassign {
			if len(id.Fields) != 1 {
				return invalid(p.Table, "reassign needs a single identity field, got %v", id.Fields)
			}
			if id.Scope != ScopeBatch {
				return invalid(p.Table, "reassign needs batch scope")
			}
			if _, ok := p.foreignKey(id.Fields[0]); ok {
				return invalid(p.Table, "identity %s is a foreign key", id.Fields[0])
			}
		}
	}

	for _, fk := range p.ForeignKeys {
		if fk.Action == FKNull && !fk.Nullable {
			return invalid(p.Table, "cannot null non-nullable foreign key %s", fk.Field)
		}
	}

	for i, u := range p.Unique {
		if len(u.Fields) == 0 {
			return invalid(p.Table, "unique rule %q has no fields", u.Name)
		}
		if u.Action == CollisionSkip {
			continue
		}
		if !contains(u.Fields, u.Vary) {
			return invalid(p.Table, "unique rule %q varies %q outside its key", u.Name, u.Vary)
		}
		varied := []string{u.Vary}
		if u.Fallback != nil {
			if u.Action != CollisionRegenerate {
				return invalid(p.Table, "unique rule %q: fallback needs regenerate", u.Name)
			}
			if u.Fallback.Field == u.Vary || !contains(u.Fields, u.Fallback.Field) {
				return invalid(p.Table, "unique rule %q: bad fallback field %q", u.Name, u.Fallback.Field)
			}
			if u.Fallback.Generator == nil {
				return invalid(p.Table, "unique rule %q: fallback has no generator", u.Name)
			}
			varied = append(varied, u.Fallback.Field)
		}
		for j, other := range p.Unique {
			if j == i {
				continue
			}
			for _, f := range varied {
				if contains(other.Fields, f) {
					return invalid(p.Table, "unique rule %q varies %q which is part of rule %q", u.Name, f, other.Name)
				}
			}
		}
		switch u.Action {
		case CollisionSuffix:
			if _, ok := p.foreignKey(u.Vary); ok {
				return invalid(p.Table, "unique rule %q cannot suffix foreign key %s", u.Name, u.Vary)
			}
		case CollisionRegenerate:
			if u.Generator == nil {
				return invalid(p.Table, "unique rule %q has no generator", u.Name)
			}
		}
		gens := map[string]Generator{u.Vary: u.Generator}
		if u.Fallback != nil {
			gens[u.Fallback.Field] = u.Fallback.Generator
		}
		for field, g := range gens {
			fk, ok := p.foreignKey(field)
			if !ok || g == nil {
				continue
			}
			if set, isSet := g.(FromSet); !isSet || string(set) != fk.Set {
				return invalid(p.Table, "unique rule %q regenerates foreign key %s outside set %s", u.Name, field, fk.Set)
			}
		}
	}

	for _, c := range p.Checks {
		if c.Valid == nil || c.Repair == nil {
			return invalid(p.Table, "check on %s needs a predicate and a repair", c.Field)
		}
		if _, ok := p.foreignKey(c.Field); ok {
			return invalid(p.Table, "check on foreign key %s", c.Field)
		}
		for _, u := range p.Unique {
			if contains(u.Fields, c.Field) {
				return invalid(p.Table, "check on unique key field %s", c.Field)
			}
		}
	}
	return nil
}
