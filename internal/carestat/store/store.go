// Package store is the relational side of the loader: connection setup,
// schema DDL, reference set queries and transactional inserts.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/vaibhaw-/CareStat/internal/carestat/config"
	"github.com/vaibhaw-/CareStat/internal/carestat/logger"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

// Open connects to the configured database and checks it is reachable.
func Open(ctx context.Context, cfg config.DatabaseCfg) (*sqlx.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildDSN(cfg.Driver, cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	}
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite3" {
		// one writer; a shared in-memory database also needs a single connection
		db.SetMaxOpenConns(1)
	}
	logger.L().Debugw("connected", "driver", cfg.Driver, "host", cfg.Host, "database", cfg.Name)
	return db, nil
}

// buildDSN constructs a DSN for postgres/mysql/sqlite3
func buildDSN(driver, user, pass, host string, port int, db string) string {
	switch driver {
	case "postgres":
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", user, pass, host, port, db)
	case "sqlite3":
		return fmt.Sprintf("file:%s?_foreign_keys=on", db)
	default:
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true", user, pass, host, port, db)
	}
}

// IsConstraintViolation reports whether err is a driver error for a broken
// key, foreign key, NOT NULL or CHECK constraint.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, tables.ErrConstraintViolation) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1048, 1062, 1451, 1452, 3819:
			return true
		}
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// coerce converts a scanned driver value to the Go type of kind.
func coerce(v any, kind tables.Kind) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch kind {
	case tables.KindInt:
		switch t := v.(type) {
		case nil:
			return nil, nil
		case int64:
			return t, nil
		case int32:
			return int64(t), nil
		case int:
			return int64(t), nil
		case float64:
			return int64(t), nil
		case string:
			n, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("not an integer key: %q", t)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("unexpected key type %T", v)
		}
	default:
		switch t := v.(type) {
		case nil:
			return nil, nil
		case string:
			return t, nil
		case int64:
			return strconv.FormatInt(t, 10), nil
		default:
			return fmt.Sprint(t), nil
		}
	}
}
