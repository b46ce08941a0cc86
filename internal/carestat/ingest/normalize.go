package ingest

import (
	"io"

	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
)

// Normalizer fills typed fields from one decoded row.
type Normalizer[T any] func(row T, f *Fields)

// Normalize coerces decoded rows into candidate records, splitting off the
// rows the normalizer marks as malformed.
func Normalize[T any](table string, rows []Row[T], fn Normalizer[T]) ([]reconcile.Record, []Malformed) {
	var (
		out []reconcile.Record
		bad []Malformed
	)
	for _, row := range rows {
		f := NewFields()
		fn(row.Value, f)
		if err := f.Err(); err != nil {
			bad = append(bad, Malformed{Table: table, Line: row.Line, Reason: err.Error(), Raw: row.Raw})
			continue
		}
		out = append(out, reconcile.NewRecord(row.Line, f.Map()))
	}
	return out, bad
}

// Read decodes and normalizes a whole CSV stream.
func Read[T any](table string, r io.Reader, required []string, fn Normalizer[T]) ([]reconcile.Record, []Malformed, error) {
	rows, ragged, err := Decode[T](r, required)
	if err != nil {
		return nil, nil, err
	}
	for i := range ragged {
		ragged[i].Table = table
	}
	recs, bad := Normalize(table, rows, fn)
	return recs, append(ragged, bad...), nil
}
