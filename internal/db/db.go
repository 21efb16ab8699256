package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DB is the relational backing store. Queries are written with `?` placeholders and rebound
// for drivers that use numbered parameters.
type DB interface {
	InitDB() error

	Get() *sql.DB
	Close() error
	Driver() string

	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(*Tx) error) error
}

var dbLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}

// Open returns an initialized database for the named driver.
func Open(driver, dsn string) (DB, error) {
	var d DB
	switch driver {
	case DriverSQLite:
		d = NewSQLite(dsn)
	case DriverPgx:
		d = NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	if err := d.InitDB(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// Tx wraps sql.Tx with the owning database's placeholder style.
type Tx struct {
	tx     *sql.Tx
	rebind func(string) string
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = t.rebind(query)
	dbLogger.Debug().Str("query", query).Msg("Tx exec")
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	query = t.rebind(query)
	dbLogger.Debug().Str("query", query).Msg("Tx query row")
	return t.tx.QueryRowContext(ctx, query, args...)
}

// sqlDB holds what both drivers share. Drivers only differ in how they open and bind.
type sqlDB struct {
	conn   *sql.DB
	driver string
	rebind func(string) string
}

func (s *sqlDB) Get() *sql.DB {
	return s.conn
}

func (s *sqlDB) Driver() string {
	return s.driver
}

func (s *sqlDB) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *sqlDB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = s.rebind(query)
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *sqlDB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	query = s.rebind(query)
	dbLogger.Debug().Str("query", query).Msg("Query row")
	return s.conn.QueryRowContext(ctx, query, args...)
}

func (s *sqlDB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = s.rebind(query)
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *sqlDB) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: tx, rebind: s.rebind}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			dbLogger.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func noRebind(q string) string { return q }

// dollarRebind turns `?` placeholders into `$1..$n`.
func dollarRebind(q string) string {
	if !strings.Contains(q, "?") {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
