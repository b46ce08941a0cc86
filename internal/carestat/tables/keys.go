package tables

import (
	"context"
	"errors"

	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
)

// ErrConstraintViolation wraps an insert the store rejected for breaking a
// key, foreign key, NOT NULL or CHECK constraint.
var ErrConstraintViolation = errors.New("constraint violation")

// Batch is an open insert transaction for one table.
type Batch interface {
	Insert(ctx context.Context, rec reconcile.Record) error
	Commit() error
	Rollback() error
}

// KeyColumn is a column that takes part in an identity, foreign key or
// unique rule. Expr is the SQL expression selecting it.
type KeyColumn struct {
	Field string
	Expr  string
	Kind  Kind
}

// derived maps record fields that are not stored as-is to their SQL form.
var derived = map[string]string{
	"disease_key": "LOWER(disease_name)",
}

// KeyColumns lists the key columns of the table's policy, in rule order,
// typed after the reference sets they are checked against.
func (t *Table) KeyColumns() []KeyColumn {
	var (
		out  []KeyColumn
		seen = map[string]bool{}
	)
	add := func(fields []string, set string) {
		ref := references[set]
		for i, f := range fields {
			if seen[f] {
				continue
			}
			seen[f] = true
			kind := KindString
			if i < len(ref.Kinds) {
				kind = ref.Kinds[i]
			}
			expr := f
			if e, ok := derived[f]; ok {
				expr = e
			}
			out = append(out, KeyColumn{Field: f, Expr: expr, Kind: kind})
		}
	}
	p := t.policy
	if p.Identity != nil {
		add(p.Identity.Fields, p.Identity.Set)
	}
	for _, fk := range p.ForeignKeys {
		add([]string{fk.Field}, fk.Set)
	}
	for _, u := range p.Unique {
		add(u.Fields, u.Set)
	}
	return out
}
