package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

const rowSavepoint = "carestat_row"

// Sink opens insert transactions.
type Sink struct {
	db *sqlx.DB
}

func NewSink(db *sqlx.DB) *Sink {
	return &Sink{db: db}
}

// Begin starts the single transaction a table load inserts into.
func (s *Sink) Begin(ctx context.Context, t *tables.Table) (tables.Batch, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %s: %w", t.SQLName, err)
	}
	return &batch{
		tx:        tx,
		table:     t,
		query:     tx.Rebind(insertSQL(t)),
		savepoint: s.db.DriverName() == "postgres",
	}, nil
}

func insertSQL(t *tables.Table) string {
	marks := make([]string, len(t.Columns))
	for i := range marks {
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.SQLName, strings.Join(t.Columns, ", "), strings.Join(marks, ", "))
}

type batch struct {
	tx    *sqlx.Tx
	table *tables.Table
	query string
	// savepoint guards each row; a failed statement otherwise aborts a
	// postgres transaction.
	savepoint bool
}

// Insert writes one record. Constraint violations are wrapped with
// tables.ErrConstraintViolation and leave the transaction usable.
func (b *batch) Insert(ctx context.Context, rec reconcile.Record) error {
	args := make([]any, len(b.table.Columns))
	for i, c := range b.table.Columns {
		args[i] = rec.Fields[c]
	}

	if b.savepoint {
		if _, err := b.tx.ExecContext(ctx, "SAVEPOINT "+rowSavepoint); err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}
	}
	_, err := b.tx.ExecContext(ctx, b.query, args...)
	if b.savepoint {
		stmt := "RELEASE SAVEPOINT " + rowSavepoint
		if err != nil {
			stmt = "ROLLBACK TO SAVEPOINT " + rowSavepoint
		}
		if _, spErr := b.tx.ExecContext(ctx, stmt); spErr != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(stmt), spErr)
		}
	}
	if err != nil {
		if IsConstraintViolation(err) {
			return fmt.Errorf("%w: line %d: %v", tables.ErrConstraintViolation, rec.Line, err)
		}
		return fmt.Errorf("insert %s line %d: %w", b.table.SQLName, rec.Line, err)
	}
	return nil
}

func (b *batch) Commit() error {
	return b.tx.Commit()
}

func (b *batch) Rollback() error {
	return b.tx.Rollback()
}
