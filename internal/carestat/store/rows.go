package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

// TableRows reads the key columns of every persisted row of t. Line is the
// 1-based position in the result.
func TableRows(ctx context.Context, db *sqlx.DB, t *tables.Table) ([]reconcile.Record, error) {
	cols := t.KeyColumns()
	if len(cols) == 0 {
		return nil, nil
	}
	exprs := make([]string, len(cols))
	for i, c := range cols {
		exprs[i] = c.Expr
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), t.SQLName)

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.SQLName, err)
	}
	defer rows.Close()

	var out []reconcile.Record
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.SQLName, err)
		}
		fields := make(map[string]any, len(cols))
		for i, c := range cols {
			if fields[c.Field], err = coerce(vals[i], c.Kind); err != nil {
				return nil, fmt.Errorf("scan %s.%s: %w", t.SQLName, c.Field, err)
			}
		}
		out = append(out, reconcile.NewRecord(len(out)+1, fields))
	}
	return out, rows.Err()
}

// TableRows reads t's persisted key columns through the provider's
// connection.
func (p *Provider) TableRows(ctx context.Context, t *tables.Table) ([]reconcile.Record, error) {
	return TableRows(ctx, p.db, t)
}
