// Package tables is the catalogue of the CareStat tables: where each one is
// read from, how its rows are coerced, and which reconcile policy repairs
// them before insertion.
package tables

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/vaibhaw-/CareStat/internal/carestat/ingest"
	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
)

// ErrUnknownTable is returned for a name outside the catalogue.
var ErrUnknownTable = errors.New("unknown table")

// Kind is the Go type a reference column is coerced to after scanning.
type Kind int

const (
	KindInt Kind = iota
	KindString
)

// Reference declares how a reference set is fetched from the store. A
// single-column query yields a set of values, a multi-column query a set of
// key tuples.
type Reference struct {
	Name  string
	Query string
	Kinds []Kind
}

type readFunc func(io.Reader) ([]reconcile.Record, []ingest.Malformed, error)

// Table describes one target table.
type Table struct {
	// Name is the catalogue key, e.g. "doctor_phones".
	Name string
	// SQLName is the table name in the store, e.g. "DoctorPhones".
	SQLName  string
	File     string
	Required []string
	// Columns are inserted in this order.
	Columns []string
	// Fixed columns have a fixed format that a suffix would break.
	Fixed []string

	policy reconcile.Policy
	read   readFunc
}

func reader[T any](name string, required []string, fn ingest.Normalizer[T]) readFunc {
	return func(r io.Reader) ([]reconcile.Record, []ingest.Malformed, error) {
		return ingest.Read(name, r, required, fn)
	}
}

// Read decodes and coerces a CSV export of the table.
func (t *Table) Read(r io.Reader) ([]reconcile.Record, []ingest.Malformed, error) {
	recs, bad, err := t.read(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", t.Name, err)
	}
	return recs, bad, nil
}

// Policy returns the repair policy, overrides applied.
func (t *Table) Policy() reconcile.Policy {
	return t.policy
}

// References lists the reference sets the policy needs.
func (t *Table) References() []Reference {
	var out []Reference
	for _, name := range t.policy.Sets() {
		out = append(out, references[name])
	}
	return out
}

// Registry holds the catalogue in load order.
type Registry struct {
	ordered []*Table
	byName  map[string]*Table
}

// NewRegistry builds the catalogue and applies overrides (may be nil).
func NewRegistry(ov *Overrides) (*Registry, error) {
	r := &Registry{byName: map[string]*Table{}}
	for _, build := range catalogue {
		t := build()
		r.ordered = append(r.ordered, t)
		r.byName[t.Name] = t
	}
	if ov != nil {
		names := make([]string, 0, len(ov.Tables))
		for name := range ov.Tables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t, err := r.Lookup(name)
			if err != nil {
				return nil, fmt.Errorf("policy overrides: %w", err)
			}
			if err := t.apply(ov.Tables[name]); err != nil {
				return nil, fmt.Errorf("policy overrides: table %s: %w", name, err)
			}
		}
	}
	for _, t := range r.ordered {
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("policy overrides: %w", err)
		}
	}
	return r, nil
}

// validate checks the policy structure before any set is fetched. Sets are
// checked by name; their members are only known at load time.
func (t *Table) validate() error {
	refs := reconcile.ReferenceSets{}
	for _, name := range t.policy.Sets() {
		if _, ok := references[name]; !ok {
			return fmt.Errorf("%w: table %s: no query for set %q", reconcile.ErrInvalidPolicy, t.Name, name)
		}
		refs[name] = reconcile.NewReferenceSet(name)
	}
	if err := t.policy.Validate(refs); err != nil {
		return err
	}
	for _, u := range t.policy.Unique {
		if u.Action == reconcile.CollisionSuffix && slices.Contains(t.Fixed, u.Vary) {
			return fmt.Errorf("%w: table %s: unique rule %q cannot suffix fixed-format column %s",
				reconcile.ErrInvalidPolicy, t.Name, u.Name, u.Vary)
		}
	}
	return nil
}

// All returns every table in dependency order.
func (r *Registry) All() []*Table {
	return append([]*Table(nil), r.ordered...)
}

func (r *Registry) Lookup(name string) (*Table, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTable, name, r.Names())
	}
	return t, nil
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.ordered))
	for i, t := range r.ordered {
		out[i] = t.Name
	}
	return out
}
