package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/CareStat/internal/carestat/config"
	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(context.Background(), config.DatabaseCfg{
		Driver: "sqlite3",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, ApplySchema(context.Background(), db))
	return db
}

func lookup(t *testing.T, name string) *tables.Table {
	t.Helper()
	reg, err := tables.NewRegistry(nil)
	require.NoError(t, err)
	tbl, err := reg.Lookup(name)
	require.NoError(t, err)
	return tbl
}

func doctor(line int, id int64, email string) reconcile.Record {
	return reconcile.NewRecord(line, map[string]any{
		"doctor_id": id, "first_name": "Ali", "last_name": "Hassan", "email": email,
		"gender": "male", "salary": 1000.0,
	})
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		driver string
		port   int
		want   string
	}{
		{"postgres", 0, "postgres://u:p@h:5432/care?sslmode=disable"},
		{"postgres", 6543, "postgres://u:p@h:6543/care?sslmode=disable"},
		{"mysql", 0, "u:p@tcp(h:3306)/care?parseTime=true&multiStatements=true"},
		{"sqlite3", 0, "file:care?_foreign_keys=on"},
	}
	for _, tt := range tests {
		if got := buildDSN(tt.driver, "u", "p", "h", tt.port, "care"); got != tt.want {
			t.Errorf("buildDSN(%s, %d) = %q, want %q", tt.driver, tt.port, got, tt.want)
		}
	}
}

func TestSchema(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite3"} {
		stmts, err := Schema(driver)
		require.NoError(t, err, driver)
		assert.Len(t, stmts, 14, driver)
	}
	pg, _ := Schema("postgres")
	assert.Contains(t, pg[0], "salary NUMERIC(12,2)")
	my, _ := Schema("mysql")
	assert.Contains(t, my[4], "appointment_date DATETIME")

	_, err := Schema("oracle")
	assert.Error(t, err)
}

func TestApplySchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, ApplySchema(context.Background(), db))
}

func TestSink_InsertAndProvider(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	docs := lookup(t, "doctors")

	b, err := NewSink(db).Begin(ctx, docs)
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, doctor(2, 1, "a@care.org")))
	require.NoError(t, b.Insert(ctx, doctor(3, 2, "b@care.org")))

	err = b.Insert(ctx, doctor(4, 2, "c@care.org"))
	require.Error(t, err)
	assert.ErrorIs(t, err, tables.ErrConstraintViolation)

	// the transaction survives a rejected row
	require.NoError(t, b.Insert(ctx, doctor(5, 3, "d@care.org")))
	require.NoError(t, b.Commit())

	phones := lookup(t, "doctor_phones")
	b, err = NewSink(db).Begin(ctx, phones)
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, reconcile.NewRecord(2, map[string]any{"doctor_id": int64(1), "phone": "01012345678"})))
	require.NoError(t, b.Commit())

	refs, err := NewProvider(db).Fetch(ctx, phones.References())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, refs["doctors"].Values())
	assert.True(t, refs["doctor_phones"].Contains([]any{int64(1), "01012345678"}))

	refs, err = NewProvider(db).Fetch(ctx, docs.References())
	require.NoError(t, err)
	assert.True(t, refs["doctor_emails"].Contains("b@care.org"))
}

func TestSink_ForeignKeyViolation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	b, err := NewSink(db).Begin(ctx, lookup(t, "visits"))
	require.NoError(t, err)
	err = b.Insert(ctx, reconcile.NewRecord(2, map[string]any{
		"visit_id": int64(1), "patient_id": int64(99), "visit_date": time.Now().UTC(),
	}))
	assert.ErrorIs(t, err, tables.ErrConstraintViolation)
	require.NoError(t, b.Rollback())
}

func TestSink_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	docs := lookup(t, "doctors")

	b, err := NewSink(db).Begin(ctx, docs)
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, doctor(2, 1, "a@care.org")))
	require.NoError(t, b.Rollback())

	rows, err := TableRows(ctx, db, docs)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTableRows_DerivedKey(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	diseases := lookup(t, "chronic_diseases")

	b, err := NewSink(db).Begin(ctx, diseases)
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, reconcile.NewRecord(2, map[string]any{"disease_id": int64(4), "disease_name": "Asthma"})))
	err = b.Insert(ctx, reconcile.NewRecord(3, map[string]any{"disease_id": int64(5), "disease_name": "ASTHMA"}))
	assert.ErrorIs(t, err, tables.ErrConstraintViolation)
	require.NoError(t, b.Commit())

	rows, err := TableRows(ctx, db, diseases)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), rows[0].Get("disease_id"))
	assert.Equal(t, "asthma", rows[0].Get("disease_key"))
}

func TestIsConstraintViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true},
		{"mysql check", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 3819}), true},
		{"mysql syntax", &mysql.MySQLError{Number: 1064}, false},
		{"pq unique", &pq.Error{Code: "23505"}, true},
		{"pq fk", &pq.Error{Code: "23503"}, true},
		{"pq undefined table", &pq.Error{Code: "42P01"}, false},
		{"wrapped sentinel", fmt.Errorf("%w: x", tables.ErrConstraintViolation), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConstraintViolation(tt.err))
		})
	}
}

func TestCoerce(t *testing.T) {
	v, err := coerce([]byte("42"), tables.KindInt)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = coerce(int64(7), tables.KindString)
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	v, err = coerce(nil, tables.KindInt)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = coerce("abc", tables.KindInt)
	assert.Error(t, err)
}
