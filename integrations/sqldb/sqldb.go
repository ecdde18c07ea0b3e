// Package sqldb reaches stores through database/sql drivers: PostgreSQL via
// pgx, MySQL, SQL Server and SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/TFMV/masquerade/integrations"
	"github.com/TFMV/masquerade/pkg/core"
)

// Ensure Store implements core.Store.
var _ core.Store = (*Store)(nil)

// drivers maps masquerade driver names to database/sql driver names and the
// dialect each one speaks by default.
var drivers = map[string]struct{ sqlName, dialect string }{
	"postgres":  {"pgx", "postgres"},
	"pgx":       {"pgx", "postgres"},
	"mysql":     {"mysql", "mysql"},
	"sqlserver": {"sqlserver", "sqlserver"},
	"mssql":     {"sqlserver", "sqlserver"},
	"sqlite":    {"sqlite", "sqlite"},
}

func init() {
	for name, d := range drivers {
		sqlName := d.sqlName
		integrations.Register(integrations.Driver{
			Name:    name,
			Dialect: d.dialect,
			Open: func(opts integrations.Options) (core.Store, error) {
				return Open(opts.Context, sqlName, opts.Path)
			},
		})
	}
}

// Store is a core.Store over a *sql.DB.
type Store struct {
	db *sql.DB
}

// New wraps an open *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens and pings a database with the given database/sql driver.
func Open(ctx context.Context, driverName, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s: a DSN is required", driverName)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", core.ErrStoreUnavailable, driverName, err)
	}
	return New(db), nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Query executes a statement and collects its result rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]core.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, classify(err)
	}

	var out []core.Row
	for rows.Next() {
		row := make(core.Row, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Exec executes a statement that doesn't produce a result set.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return -1, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// classify marks connection loss as store unavailability.
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return err
}
