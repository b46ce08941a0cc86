package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/vaibhaw-/CareStat/internal/carestat/logger"
	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

// Provider fetches reference sets from the target database.
type Provider struct {
	db *sqlx.DB
}

func NewProvider(db *sqlx.DB) *Provider {
	return &Provider{db: db}
}

// Fetch runs the reference queries concurrently. Each set is a snapshot
// taken at query time.
func (p *Provider) Fetch(ctx context.Context, refs []tables.Reference) (reconcile.ReferenceSets, error) {
	sets := make([]*reconcile.ReferenceSet, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			set, err := p.fetch(ctx, ref)
			if err != nil {
				return fmt.Errorf("fetch reference %s: %w", ref.Name, err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(reconcile.ReferenceSets, len(refs))
	for _, s := range sets {
		out[s.Name()] = s
	}
	return out, nil
}

func (p *Provider) fetch(ctx context.Context, ref tables.Reference) (*reconcile.ReferenceSet, error) {
	start := time.Now()
	rows, err := p.db.QueryxContext(ctx, ref.Query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		cols, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		if len(cols) != len(ref.Kinds) {
			return nil, fmt.Errorf("query returned %d columns, want %d", len(cols), len(ref.Kinds))
		}
		tuple := make([]any, len(cols))
		for i, c := range cols {
			if tuple[i], err = coerce(c, ref.Kinds[i]); err != nil {
				return nil, err
			}
		}
		if len(tuple) == 1 {
			values = append(values, tuple[0])
		} else {
			values = append(values, tuple)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.L().Debugw("fetched reference set",
		"name", ref.Name,
		"members", len(values),
		"duration", time.Since(start))
	return reconcile.NewReferenceSet(ref.Name, values...), nil
}
